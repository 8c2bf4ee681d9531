package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chandler/internal/errs"
)

func TestGuardStartsLocked(t *testing.T) {
	g := NewGuard("CONFIRM SEND", time.Minute)
	require.Equal(t, Locked, g.State())
	require.True(t, errs.IsLocked(g.Ensure()))
}

func TestGuardUnlockRequiresExactPhrase(t *testing.T) {
	g := NewGuard("CONFIRM SEND", time.Minute)

	for _, phrase := range []string{"confirm send", "CONFIRM SEND ", "CONFIRM", ""} {
		err := g.Unlock(phrase)
		require.True(t, errs.IsValidation(err), "phrase=%q", phrase)
		require.Equal(t, Locked, g.State())
	}

	require.NoError(t, g.Unlock("CONFIRM SEND"))
	require.Equal(t, Unlocked, g.State())
	require.NoError(t, g.Ensure())
}

func TestGuardManualLock(t *testing.T) {
	g := NewGuard("GO", time.Minute)
	require.NoError(t, g.Unlock("GO"))

	g.Lock()
	require.Equal(t, Locked, g.State())

	// Locking an already locked guard is a no-op.
	g.Lock()
	require.Equal(t, Locked, g.State())
}

func TestGuardAutoRelockAfterIdle(t *testing.T) {
	g := NewGuard("GO", 40*time.Millisecond)
	require.NoError(t, g.Unlock("GO"))

	require.Eventually(t, func() bool { return g.State() == Locked }, time.Second, 5*time.Millisecond)
}

func TestGuardTouchRestartsCountdown(t *testing.T) {
	g := NewGuard("GO", 80*time.Millisecond)
	require.NoError(t, g.Unlock("GO"))

	// Keep touching inside the idle window; the guard must stay unlocked
	// well past the original deadline.
	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)
		require.Equal(t, Unlocked, g.State())
		g.Touch()
	}

	require.Eventually(t, func() bool { return g.State() == Locked }, time.Second, 5*time.Millisecond)
}

func TestGuardTouchWhileLockedIsNoop(t *testing.T) {
	g := NewGuard("GO", 20*time.Millisecond)
	g.Touch()
	require.Equal(t, Locked, g.State())
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, Locked, g.State())
}

func TestGuardRepeatedUnlockKeepsSingleCountdown(t *testing.T) {
	g := NewGuard("GO", 50*time.Millisecond)
	require.NoError(t, g.Unlock("GO"))
	require.NoError(t, g.Unlock("GO"))
	g.Lock()

	// The countdowns from both unlocks were cancelled; the guard must not
	// flap back to Unlocked and must stay Locked.
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, Locked, g.State())
}
