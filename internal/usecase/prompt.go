package usecase

import (
	"fmt"
	"strings"

	"onboarding-proxy/internal/domain"
)

const (
	organisation = "WFS"

	welcomeSystemPrompt  = "You are a friendly onboarding assistant for " + organisation + ". Keep replies concise and welcoming."
	questionSystemPrompt = "You help new starters with first-day questions at " + organisation + ". Be friendly, accurate, and concise. Use British English."
)

// learner is the resolved identity a prompt is written for.
type learner struct {
	name string
	role string
}

func buildWelcomeMessages(l learner) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: welcomeSystemPrompt},
		{Role: "user", Content: buildWelcomePrompt(l)},
	}
}

func buildWelcomePrompt(l learner) string {
	addressee := l.name
	if addressee == "" {
		addressee = "there"
	}
	parts := []string{fmt.Sprintf("Welcome %s to %s.", addressee, organisation)}
	if l.role != "" {
		parts = append(parts, fmt.Sprintf("Acknowledge their role: %s.", l.role))
	}
	parts = append(parts,
		"Write a short, warm, professional welcome in 2–3 sentences.",
		"Use British English.",
	)
	return strings.Join(parts, " ")
}

func buildQuestionMessages(l learner, question string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: questionSystemPrompt},
		{Role: "user", Content: buildQuestionPrompt(l, question)},
	}
}

func buildQuestionPrompt(l learner, question string) string {
	return strings.Join([]string{
		learnerContext(l),
		fmt.Sprintf("They asked about their first day at %s: \"%s\"", organisation, question),
		"Answer in 2–4 short, friendly sentences with practical guidance.",
		"If the question is vague, give key pointers (" + vagueQuestionPointers() + ") " +
			"and suggest contacting their line manager or the Learning & Engagement team for specifics. Use British English.",
	}, "\n")
}

func learnerContext(l learner) string {
	switch {
	case l.name != "" && l.role != "":
		return fmt.Sprintf("The learner is %s (%s).", l.name, l.role)
	case l.name != "":
		return fmt.Sprintf("The learner is %s.", l.name)
	default:
		return "No name provided."
	}
}

func vagueQuestionPointers() string {
	return strings.Join([]string{
		"start time",
		"where to go",
		"ID/badge",
		"PPE or dress code",
		"safety briefing",
		"who to ask for",
		"parking/canteen",
	}, ", ")
}
