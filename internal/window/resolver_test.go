package window

import (
	"errors"
	"testing"

	"github.com/bryanchriswhite/viewcapture/internal/capture"
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	windows   []*config.WindowInfo
	focused   *config.WindowInfo
	activated []uint64
	listErr   error
}

func (f *fakeBackend) Connect() error { return nil }
func (f *fakeBackend) Close() error   { return nil }
func (f *fakeBackend) Name() string   { return "fake" }

func (f *fakeBackend) ListWindows() ([]*config.WindowInfo, error) {
	return f.windows, f.listErr
}

func (f *fakeBackend) GetFocusedWindow() (*config.WindowInfo, error) {
	if f.focused == nil {
		return nil, errors.New("no focused window")
	}
	return f.focused, nil
}

func (f *fakeBackend) Activate(w *config.WindowInfo) error {
	f.activated = append(f.activated, w.ID)
	return nil
}

type ruleMap map[string]config.TargetRule

func (r ruleMap) Target(name string) (config.TargetRule, bool) {
	rule, ok := r[name]
	return rule, ok
}

func defaultRules() ruleMap {
	return ruleMap(config.Defaults().Targets)
}

func newTestResolver(b Backend, rules RuleSource) *Resolver {
	r := NewResolver(b, rules)
	r.SetSettle(0)
	return r
}

func TestResolveByTitle(t *testing.T) {
	b := &fakeBackend{windows: []*config.WindowInfo{
		{ID: 1, Title: "Terminal"},
		{ID: 2, Title: "Game"},
		{ID: 3, Title: "Scene"},
	}}
	r := newTestResolver(b, defaultRules())

	w, err := r.Resolve(capture.TargetScene)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), w.ID)

	w, err = r.Resolve(capture.TargetGame)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), w.ID)
}

func TestResolvePrefersFocusedMatch(t *testing.T) {
	b := &fakeBackend{windows: []*config.WindowInfo{
		{ID: 1, Title: "Game"},
		{ID: 2, Title: "Game", Focused: true},
	}}
	r := newTestResolver(b, defaultRules())

	w, err := r.Resolve(capture.TargetGame)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), w.ID)
}

func TestResolveFirstListedMatchWithoutFocus(t *testing.T) {
	b := &fakeBackend{windows: []*config.WindowInfo{
		{ID: 4, Title: "Game - old"},
		{ID: 5, Title: "Game - new"},
	}}
	r := newTestResolver(b, defaultRules())

	w, err := r.Resolve(capture.TargetGame)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), w.ID)
}

func TestResolveByClass(t *testing.T) {
	rules := ruleMap{"game": {ClassPatterns: []string{"^UnityPlayer$"}}}
	b := &fakeBackend{windows: []*config.WindowInfo{
		{ID: 7, Title: "My Project", Class: "UnityPlayer"},
	}}
	r := newTestResolver(b, rules)

	w, err := r.Resolve(capture.TargetGame)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), w.ID)
}

func TestResolveNoMatch(t *testing.T) {
	b := &fakeBackend{windows: []*config.WindowInfo{{ID: 1, Title: "Terminal"}}}
	r := newTestResolver(b, defaultRules())

	_, err := r.Resolve(capture.TargetScene)
	assert.ErrorIs(t, err, capture.ErrNoActiveSurface)
}

func TestResolveEditorWithoutRulesUsesFocus(t *testing.T) {
	focused := &config.WindowInfo{ID: 9, Title: "Inspector", Focused: true}
	r := newTestResolver(&fakeBackend{focused: focused}, ruleMap{})

	w, err := r.Resolve(capture.TargetEditor)
	require.NoError(t, err)
	assert.Equal(t, focused, w)

	_, err = r.Resolve(capture.TargetGame)
	assert.ErrorIs(t, err, capture.ErrNoActiveSurface)
}

func TestResolveListError(t *testing.T) {
	b := &fakeBackend{listErr: errors.New("display gone")}
	r := newTestResolver(b, defaultRules())

	_, err := r.Resolve(capture.TargetGame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display gone")
}

func TestResolveInvalidPattern(t *testing.T) {
	r := newTestResolver(&fakeBackend{}, ruleMap{"game": {TitlePatterns: []string{"("}}})

	_, err := r.Resolve(capture.TargetGame)
	assert.Error(t, err)
}

func TestRepaintActivates(t *testing.T) {
	b := &fakeBackend{}
	r := newTestResolver(b, defaultRules())

	require.NoError(t, r.Repaint(&config.WindowInfo{ID: 42}))
	assert.Equal(t, []uint64{42}, b.activated)
}

func TestFocusedWindowMissing(t *testing.T) {
	r := newTestResolver(&fakeBackend{}, defaultRules())

	_, err := r.FocusedWindow()
	assert.ErrorIs(t, err, capture.ErrNoActiveSurface)
}

func TestMatches(t *testing.T) {
	b := &fakeBackend{windows: []*config.WindowInfo{
		{ID: 1, Title: "Terminal"},
		{ID: 2, Title: "Unity - Game"},
	}}
	r := newTestResolver(b, defaultRules())

	matches, err := r.Matches()
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, uint64(2), matches[0].Window.ID)
	assert.Equal(t, []string{"game", "editor"}, matches[0].Targets)
	assert.Empty(t, matches[1].Targets)
}
