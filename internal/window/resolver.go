package window

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/bryanchriswhite/viewcapture/internal/capture"
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
)

// RuleSource provides the target rules; *config.Manager satisfies it
type RuleSource interface {
	Target(name string) (config.TargetRule, bool)
}

// DefaultSettle is how long Repaint waits for the compositor after activating
const DefaultSettle = 60 * time.Millisecond

// Resolver maps logical targets to windows by matching their title and class
// against the configured rules
type Resolver struct {
	backend Backend
	rules   RuleSource
	settle  time.Duration
}

// NewResolver creates a resolver over a window backend
func NewResolver(backend Backend, rules RuleSource) *Resolver {
	return &Resolver{
		backend: backend,
		rules:   rules,
		settle:  DefaultSettle,
	}
}

// SetSettle changes the delay after activation
func (r *Resolver) SetSettle(d time.Duration) {
	r.settle = d
}

// Resolve returns the window for target. A focused match wins over the
// first match in the backend's listing order (_NET_CLIENT_LIST mapping order
// on X11, Z order from EnumWindows on Windows).
func (r *Resolver) Resolve(target capture.Target) (*config.WindowInfo, error) {
	log := logger.WithComponent("resolver")

	m, err := r.matcher(string(target))
	if err != nil {
		return nil, err
	}

	if m.empty() {
		if target == capture.TargetEditor {
			return r.FocusedWindow()
		}
		return nil, noSurface(target, "no rules configured")
	}

	windows, err := r.backend.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	var match *config.WindowInfo
	for _, w := range windows {
		if !m.Match(w) {
			continue
		}
		if w.Focused {
			match = w
			break
		}
		if match == nil {
			match = w
		}
	}

	if match == nil {
		return nil, noSurface(target, "no window matches")
	}

	log.Debug().
		Str("target", string(target)).
		Uint64("id", match.ID).
		Str("title", match.Title).
		Str("class", match.Class).
		Msg("Resolved target")
	return match, nil
}

// Repaint activates the window and waits for it to redraw
func (r *Resolver) Repaint(window *config.WindowInfo) error {
	if err := r.backend.Activate(window); err != nil {
		return err
	}
	if r.settle > 0 {
		time.Sleep(r.settle)
	}
	return nil
}

// FocusedWindow returns the window with input focus
func (r *Resolver) FocusedWindow() (*config.WindowInfo, error) {
	w, err := r.backend.GetFocusedWindow()
	if err != nil {
		return nil, &capture.Failure{Kind: capture.KindNoActiveSurface, Message: "no focused window", Err: err}
	}
	return w, nil
}

// Match pairs a window with the targets whose rules it satisfies
type Match struct {
	Window  *config.WindowInfo `json:"window"`
	Targets []string           `json:"targets"`
}

// Matches lists all windows with the targets each one matches
func (r *Resolver) Matches() ([]Match, error) {
	names := []string{config.TargetScene, config.TargetGame, config.TargetEditor}
	matchers := make(map[string]*Matcher, len(names))
	for _, name := range names {
		m, err := r.matcher(name)
		if err != nil {
			return nil, err
		}
		matchers[name] = m
	}

	windows, err := r.backend.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	out := make([]Match, 0, len(windows))
	for _, w := range windows {
		match := Match{Window: w, Targets: []string{}}
		for _, name := range names {
			if matchers[name].Match(w) {
				match.Targets = append(match.Targets, name)
			}
		}
		out = append(out, match)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Targets) > len(out[j].Targets)
	})
	return out, nil
}

func (r *Resolver) matcher(name string) (*Matcher, error) {
	rule, _ := r.rules.Target(name)
	m, err := NewMatcher(rule)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}
	return m, nil
}

func noSurface(target capture.Target, reason string) error {
	return &capture.Failure{
		Kind:    capture.KindNoActiveSurface,
		Message: fmt.Sprintf("%s is not open (%s)", target.Title(), reason),
	}
}

// Matcher is a compiled TargetRule
type Matcher struct {
	title []*regexp.Regexp
	class []*regexp.Regexp
}

// NewMatcher compiles the patterns of rule
func NewMatcher(rule config.TargetRule) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range rule.TitlePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid title pattern %q: %w", p, err)
		}
		m.title = append(m.title, re)
	}
	for _, p := range rule.ClassPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid class pattern %q: %w", p, err)
		}
		m.class = append(m.class, re)
	}
	return m, nil
}

func (m *Matcher) empty() bool {
	return len(m.title) == 0 && len(m.class) == 0
}

// Match reports whether any title or class pattern matches the window
func (m *Matcher) Match(w *config.WindowInfo) bool {
	for _, re := range m.title {
		if re.MatchString(w.Title) {
			return true
		}
	}
	for _, re := range m.class {
		if re.MatchString(w.Class) {
			return true
		}
	}
	return false
}
