package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/byland-ai/byland/pkg/adapters/memory"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *session.Manager {
	return session.NewManager(memory.NewStore(), memory.NewProfileStore())
}

func TestRunChat_CompletesOnboarding(t *testing.T) {
	mgr := newManager()
	in := strings.NewReader("seasoned\nultralight\nalpine, desert\nsocial\nnone\nok\nyes\n")
	var out bytes.Buffer

	err := RunChat(context.Background(), mgr, ChatOptions{UserID: "hiker-1", In: in, Out: &out, Interactive: true})
	require.NoError(t, err)

	assert.Contains(t, out.String(), ">>> Session 'hiker-1' active.")
	assert.Contains(t, out.String(), ">>> Profile complete.")

	profile, err := mgr.Profile(context.Background(), "hiker-1")
	require.NoError(t, err)
	assert.True(t, profile.ProfileComplete)
	assert.Equal(t, []string{"alpine", "desert"}, profile.PreferredTerrain)
}

func TestRunChat_ResumesAndStopsAtEOF(t *testing.T) {
	mgr := newManager()
	ctx := context.Background()
	_, err := mgr.Turn(ctx, "hiker-1", "")
	require.NoError(t, err)

	var out bytes.Buffer
	err = RunChat(ctx, mgr, ChatOptions{UserID: "hiker-1", In: strings.NewReader("seasoned\n"), Out: &out, Interactive: true})
	require.NoError(t, err)

	assert.Contains(t, out.String(), ">>> Resuming at 'experience' state...")
	s, err := mgr.Load(ctx, "hiker-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateGear, s.CurrentState)
	assert.Equal(t, "seasoned", s.Fields.HikingExperience)
}

func TestRunChat_ExitCommand(t *testing.T) {
	mgr := newManager()
	var out bytes.Buffer

	err := RunChat(context.Background(), mgr, ChatOptions{UserID: "u", In: strings.NewReader("quit\nseasoned\n"), Out: &out})
	require.NoError(t, err)

	s, err := mgr.Load(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, domain.StateExperience, s.CurrentState, "input after quit must not be consumed")
}

func TestRunChat_JSONMode(t *testing.T) {
	mgr := newManager()
	var out bytes.Buffer

	err := RunChat(context.Background(), mgr, ChatOptions{UserID: "u", In: strings.NewReader("seasoned\n"), Out: &out, JSON: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var diff domain.TurnDiff
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &diff))
	assert.Equal(t, "u", diff.UserID)
	assert.Equal(t, []string{"hiking_experience"}, diff.Fields)
}

func TestRunChat_RejectsOversizedInput(t *testing.T) {
	mgr := newManager()
	var out bytes.Buffer

	err := RunChat(context.Background(), mgr, ChatOptions{
		UserID:       "u",
		In:           strings.NewReader(strings.Repeat("x", 20) + "\n"),
		Out:          &out,
		Interactive:  true,
		MaxInputSize: 10,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), ">>> Input rejected")

	s, err := mgr.Load(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, domain.StateExperience, s.CurrentState)
}

type brokenConversation struct{ loadErr, turnErr error }

func (b brokenConversation) Turn(ctx context.Context, userID, input string) (*session.TurnResult, error) {
	return nil, b.turnErr
}

func (b brokenConversation) Load(ctx context.Context, userID string) (*domain.Session, error) {
	return nil, b.loadErr
}

func TestRunChat_PersistenceFailureShowsGenericReply(t *testing.T) {
	conv := brokenConversation{
		loadErr: domain.ErrSessionNotFound,
		turnErr: fmt.Errorf("save session: %w", errors.Join(domain.ErrPersistence, errors.New("disk full"))),
	}
	var out bytes.Buffer

	err := RunChat(context.Background(), conv, ChatOptions{UserID: "u", In: strings.NewReader(""), Out: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), domain.GenericFailureReply)
}

func TestRunChat_LoadErrorIsReturned(t *testing.T) {
	boom := errors.New("backend down")
	err := RunChat(context.Background(), brokenConversation{loadErr: boom}, ChatOptions{UserID: "u", In: strings.NewReader(""), Out: &bytes.Buffer{}})
	assert.ErrorIs(t, err, boom)
}

func TestInterruptibleReader(t *testing.T) {
	cancel := make(chan struct{})
	r := NewInterruptibleReader(strings.NewReader("abc"), cancel)

	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	close(cancel)
	_, err = r.Read(buf)
	assert.True(t, isInterrupted(err))
}
