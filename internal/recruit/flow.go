package recruit

import "context"

type question struct {
	key  Key
	skip func(ctx context.Context, p Profile) bool
}

// Flow is the ordered questionnaire with its skip predicates. Steps are
// 1-based: step n asks the n-th question.
type Flow struct {
	questions []question
}

// NewFlow builds the questionnaire. The interview question is only asked
// when the given aptitude engine already accepts the profile, so the same
// rules gate the invitation and the final verdict.
func NewFlow(aptitude *Aptitude) *Flow {
	never := func(context.Context, Profile) bool { return false }

	return &Flow{questions: []question{
		{KeyConsent, never},
		{KeyFirstNames, never},
		{KeyLastNames, never},
		{KeyAge, never},
		{KeyGender, never},
		{KeyDocumentType, never},
		{KeyDocumentNumber, func(_ context.Context, p Profile) bool { return p.DocumentNumber != "" }},
		{KeyPhone, never},
		{KeyEmail, never},
		{KeySecondary, never},
		{KeyWorkedBefore, never},
		{KeyModality, never},
		{KeyDistrict, never},
		{KeyResidence, never},
		{KeyCity, func(_ context.Context, p Profile) bool { return p.Origin != RegionProvince }},
		{KeyLicense, never},
		{KeyLicenseCategory, func(_ context.Context, p Profile) bool { return !IsTrue(p.License) }},
		{KeyPosition, never},
		{KeyPositionOther, func(_ context.Context, p Profile) bool { return p.PositionID != PositionOther }},
		{KeyMiningBranch, func(_ context.Context, p Profile) bool { return !IsMining(p.PositionID) }},
		{KeyAvailability, never},
		{KeyChannel, never},
		{KeyChannelOther, func(_ context.Context, p Profile) bool { return p.Channel != ChannelOther }},
		{KeyInterview, func(ctx context.Context, p Profile) bool {
			return !aptitude.Evaluate(ctx, p).Eligible
		}},
	}}
}

// Len returns the number of questions.
func (f *Flow) Len() int {
	return len(f.questions)
}

// Key returns the question asked at step.
func (f *Flow) Key(step int) (Key, bool) {
	if step < 1 || step > len(f.questions) {
		return "", false
	}
	return f.questions[step-1].key, true
}

// NextStep returns the first step after step whose question applies to p.
// A result greater than Len means the questionnaire is exhausted.
func (f *Flow) NextStep(ctx context.Context, step int, p Profile) int {
	if step < 0 {
		step = 0
	}

	for next := step; next < len(f.questions); next++ {
		if !f.questions[next].skip(ctx, p) {
			return next + 1
		}
	}
	return len(f.questions) + 1
}
