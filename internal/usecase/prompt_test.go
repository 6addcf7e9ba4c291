package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLearnerContext(t *testing.T) {
	require.Equal(t, "The learner is Tomi (Learning and Engagement Specialist).", learnerContext(learner{name: "Tomi", role: "Learning and Engagement Specialist"}))
	require.Equal(t, "The learner is Sam.", learnerContext(learner{name: "Sam"}))
	require.Equal(t, "No name provided.", learnerContext(learner{}))
}

func TestBuildWelcomePrompt_RoleOnlyWhenKnown(t *testing.T) {
	require.Contains(t, buildWelcomePrompt(learner{name: "Jillian", role: "Head of Learning and Engagement"}),
		"Acknowledge their role: Head of Learning and Engagement.")
	require.NotContains(t, buildWelcomePrompt(learner{name: "Sam"}), "Acknowledge")
}
