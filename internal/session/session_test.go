package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func TestAddTurnKeepsLastTen(t *testing.T) {
	t.Parallel()

	s := New(epoch)
	for i := 0; i < 15; i++ {
		s.AddTurn(RoleUser, fmt.Sprintf("msg %d", i))
	}
	s.AddTurn(RoleBot, "   ")

	require.Len(t, s.History, MaxHistory)
	require.Equal(t, "msg 5", s.History[0].Text)
	require.Equal(t, "msg 14", s.History[MaxHistory-1].Text)
}

func TestExpiryAndCooldown(t *testing.T) {
	t.Parallel()

	s := New(epoch)
	require.False(t, s.Expired(epoch.Add(59*time.Minute), time.Hour))
	require.True(t, s.Expired(epoch.Add(61*time.Minute), time.Hour))
	require.Zero(t, s.CooldownLeft(epoch, 24*time.Hour))

	s.Completed = true
	s.CompletionTime = epoch
	require.False(t, s.Expired(epoch.Add(48*time.Hour), time.Hour))
	require.Equal(t, 14*time.Hour, s.CooldownLeft(epoch.Add(10*time.Hour), 24*time.Hour))
	require.Zero(t, s.CooldownLeft(epoch.Add(30*time.Hour), 24*time.Hour))
}

func TestResetKeepsOnlyStep(t *testing.T) {
	t.Parallel()

	age := 30
	s := New(epoch)
	s.Step = 25
	s.Profile.Age = &age
	s.RecordAnswer(recruit.KeyAge, "30")
	s.Completed = true
	s.FinalReply = "gracias"
	s.AddTurn(RoleUser, "hola")

	s.Reset(1, epoch.Add(time.Hour))

	require.Equal(t, 1, s.Step)
	require.True(t, s.Profile.IsZero())
	require.Empty(t, s.RawAnswers)
	require.Empty(t, s.History)
	require.False(t, s.Completed)
	require.Empty(t, s.FinalReply)
	require.Equal(t, epoch.Add(time.Hour), s.LastActivity)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	age := 30
	s := New(epoch)
	s.Profile.Age = &age
	s.RecordAnswer(recruit.KeyAge, "30")

	cp := s.Clone()
	*cp.Profile.Age = 40
	cp.RawAnswers[recruit.KeyAge] = "40"

	require.Equal(t, 30, *s.Profile.Age)
	require.Equal(t, "30", s.RawAnswers[recruit.KeyAge])
}
