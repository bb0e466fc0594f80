// Package i18n loads translation resources in the background and gates
// lookups until they are ready.
package i18n

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/RamanBirulia/stock-notebook/internal/localstore"
)

const (
	Fallback     = "en"
	keySeparator = "."
)

var (
	ErrNotReady   = errors.New("translations not ready")
	ErrMissingKey = errors.New("missing translation key")
)

type Status int

const (
	Loading Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "error"
	}
	return "loading"
}

var (
	supported = []language.Tag{language.English, language.Spanish, language.Russian}
	matcher   = language.NewMatcher(supported)

	displayNames = map[string]string{"en": "English", "es": "Español", "ru": "Русский"}

	placeholder = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)
)

func Supported() []string {
	out := make([]string, len(supported))
	for i, t := range supported {
		out[i] = baseOf(t)
	}
	return out
}

func DisplayName(lng string) string {
	if n, ok := displayNames[lng]; ok {
		return n
	}
	return lng
}

// Negotiate picks the best supported language for the given preferences,
// in order. Values may be BCP 47 tags or POSIX locales like ru_RU.UTF-8.
func Negotiate(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		p = strings.TrimSpace(p)
		if i := strings.IndexAny(p, ".@"); i >= 0 {
			p = p[:i]
		}
		p = strings.ReplaceAll(p, "_", "-")
		if p == "" || p == "C" || p == "POSIX" {
			continue
		}
		if t, err := language.Parse(p); err == nil {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return Fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Fallback
	}
	return baseOf(supported[idx])
}

func baseOf(t language.Tag) string {
	b, _ := t.Base()
	return b.String()
}

type Localizer struct {
	loader Loader
	store  localstore.Store

	mu        sync.Mutex
	lang      string
	status    Status
	err       error
	gen       int
	done      chan struct{}
	resources map[string]map[string]string
	subs      map[int]func(Status, string)
	nextID    int
}

func New(loader Loader, store localstore.Store) *Localizer {
	if loader == nil {
		loader = EmbeddedLoader{}
	}
	return &Localizer{
		loader:    loader,
		store:     store,
		lang:      Fallback,
		status:    Loading,
		done:      make(chan struct{}),
		resources: make(map[string]map[string]string),
		subs:      make(map[int]func(Status, string)),
	}
}

// Start picks the stored language, else the best match for prefs, and
// begins loading it.
func (l *Localizer) Start(ctx context.Context, prefs ...string) {
	if v, ok, err := l.store.Get(localstore.KeyLanguage); err == nil && ok && v != "" {
		prefs = append([]string{v}, prefs...)
	}
	lng := Negotiate(prefs...)
	_ = l.store.Set(localstore.KeyLanguage, lng)
	l.load(ctx, lng)
}

// SetLanguage switches language and persists the choice. The localizer
// is Loading until the new resources arrive.
func (l *Localizer) SetLanguage(ctx context.Context, lng string) (string, error) {
	chosen := Negotiate(lng)
	if chosen != lng && !strings.HasPrefix(strings.ToLower(lng), chosen) {
		return "", fmt.Errorf("unsupported language %q", lng)
	}
	if err := l.store.Set(localstore.KeyLanguage, chosen); err != nil {
		return "", fmt.Errorf("persist language: %w", err)
	}
	l.load(ctx, chosen)
	return chosen, nil
}

func (l *Localizer) load(ctx context.Context, lng string) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	// A superseded load never closes its channel, so release waiters here.
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	l.lang = lng
	l.status = Loading
	l.err = nil
	l.done = make(chan struct{})
	_, cached := l.resources[lng]
	subs := l.subscribers()
	l.mu.Unlock()

	notify(subs, Loading, lng)

	go func() {
		var err error
		if !cached {
			err = l.fetch(ctx, lng)
		}
		if err == nil && lng != Fallback {
			// best effort: missing keys fall back to English
			_ = l.fetch(ctx, Fallback)
		}
		l.finish(gen, lng, err)
	}()
}

func (l *Localizer) fetch(ctx context.Context, lng string) error {
	l.mu.Lock()
	_, ok := l.resources[lng]
	l.mu.Unlock()
	if ok {
		return nil
	}
	raw, err := l.loader.Load(ctx, lng)
	if err != nil {
		return err
	}
	flat, err := flatten(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", lng, err)
	}
	l.mu.Lock()
	l.resources[lng] = flat
	l.mu.Unlock()
	return nil
}

func (l *Localizer) finish(gen int, lng string, err error) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	st := Ready
	if err != nil {
		st = Failed
		l.err = err
	}
	l.status = st
	close(l.done)
	subs := l.subscribers()
	l.mu.Unlock()

	notify(subs, st, lng)
}

// Wait blocks until the current language settles. It returns the load
// error when resources failed to load.
func (l *Localizer) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		gen, done := l.gen, l.done
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}

		l.mu.Lock()
		st, err, current := l.status, l.err, l.gen == gen
		l.mu.Unlock()
		if !current || st == Loading {
			continue
		}
		if st == Failed {
			return err
		}
		return nil
	}
}

func (l *Localizer) Status() (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, l.err
}

func (l *Localizer) Language() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lang
}

// Translate resolves key in the current language, then in English, and
// fills {{name}} placeholders from args. It returns ErrNotReady unless
// the current language has loaded.
func (l *Localizer) Translate(key string, args map[string]string) (string, error) {
	l.mu.Lock()
	st, lng := l.status, l.lang
	res, fb := l.resources[lng], l.resources[Fallback]
	l.mu.Unlock()

	if st != Ready {
		return "", ErrNotReady
	}
	msg, ok := res[key]
	if !ok || msg == "" {
		msg, ok = fb[key]
	}
	if !ok || msg == "" {
		return key, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return interpolate(msg, args), nil
}

// T is Translate for callers that only render: it yields the key when
// the lookup fails and "" while loading.
func (l *Localizer) T(key string, kv ...string) string {
	args := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i]] = kv[i+1]
	}
	s, err := l.Translate(key, args)
	if errors.Is(err, ErrNotReady) {
		return ""
	}
	return s
}

func (l *Localizer) Subscribe(fn func(Status, string)) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// subscribers must be called with mu held.
func (l *Localizer) subscribers() []func(Status, string) {
	out := make([]func(Status, string), 0, len(l.subs))
	for _, fn := range l.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Status, string), st Status, lng string) {
	for _, fn := range subs {
		fn(st, lng)
	}
}

func interpolate(msg string, args map[string]string) string {
	if len(args) == 0 || !strings.Contains(msg, "{{") {
		return msg
	}
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := args[name]; ok {
			return v
		}
		return m
	})
}
