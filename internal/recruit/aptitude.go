package recruit

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/recruit-bot/internal/textnorm"
	"go.uber.org/zap"
)

// Reasons reported by the aptitude rules.
const (
	ReasonAge               = "Edad fuera de rango (18-50)"
	ReasonProvinceForLima   = "Postulante de Provincia para puesto en Lima"
	ReasonLimaForProvince   = "Postulante de Lima para puesto en Provincia"
	ReasonMiningMissingData = "Faltan datos de ubicación Minería"
	ReasonSecondary         = "Sin secundaria completa"
	ReasonForeignDocument   = "Carné de Extranjería no aceptado"
	ReasonLicense           = "Puesto requiere licencia"
	ReasonAvailability      = "Sin disponibilidad inmediata"
)

// BranchMatcher decides whether a city lies within a branch's region when
// plain text matching is not enough.
type BranchMatcher interface {
	SameRegion(ctx context.Context, city, branch string) (bool, error)
}

// Rule is a single eligibility check. Check returns the failing reasons, or
// none when the profile passes.
type Rule interface {
	Name() string
	Check(ctx context.Context, p Profile) []string
}

// Verdict is the outcome of an aptitude evaluation. Reasons is empty iff
// Eligible is true.
type Verdict struct {
	Eligible bool
	Reasons  []string
}

// Aptitude runs the eligibility rules in order, collecting every failure.
type Aptitude struct {
	rules  []Rule
	logger *zap.Logger
}

// NewAptitude builds the rule set. matcher may be nil.
func NewAptitude(matcher BranchMatcher, logger *zap.Logger) *Aptitude {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aptitude{
		rules: []Rule{
			ruleFunc{"age", checkAge},
			ruleFunc{"region", checkRegion},
			&miningRule{matcher: matcher, logger: logger},
			ruleFunc{"secondary", checkSecondary},
			ruleFunc{"document", checkDocument},
			ruleFunc{"license", checkLicense},
			ruleFunc{"availability", checkAvailability},
		},
		logger: logger,
	}
}

// Evaluate applies every rule to p.
func (a *Aptitude) Evaluate(ctx context.Context, p Profile) Verdict {
	reasons := []string{}
	for _, rule := range a.rules {
		failed := rule.Check(ctx, p)
		if len(failed) > 0 {
			a.logger.Debug("aptitude rule failed",
				zap.String("rule", rule.Name()),
				zap.Strings("reasons", failed),
			)
		}
		reasons = append(reasons, failed...)
	}

	return Verdict{Eligible: len(reasons) == 0, Reasons: reasons}
}

// ruleNames lists the rules in evaluation order.
func (a *Aptitude) ruleNames() []string {
	names := make([]string, 0, len(a.rules))
	for _, r := range a.rules {
		names = append(names, r.Name())
	}
	return names
}

type ruleFunc struct {
	name  string
	check func(p Profile) []string
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Check(_ context.Context, p Profile) []string { return r.check(p) }

func checkAge(p Profile) []string {
	if p.Age != nil && (*p.Age < MinAge || *p.Age > MaxAge) {
		return []string{ReasonAge}
	}
	return nil
}

func checkRegion(p Profile) []string {
	if p.PositionID == 0 {
		return nil
	}

	switch RegionFor(p.PositionID) {
	case RegionLima:
		if p.Origin != RegionLima {
			return []string{ReasonProvinceForLima}
		}
	case RegionProvince:
		if p.Origin != RegionProvince {
			return []string{ReasonLimaForProvince}
		}
	}
	return nil
}

func checkSecondary(p Profile) []string {
	if !IsTrue(p.Secondary) {
		return []string{ReasonSecondary}
	}
	return nil
}

func checkDocument(p Profile) []string {
	if p.DocumentType == DocumentCE {
		return []string{ReasonForeignDocument}
	}
	return nil
}

func checkLicense(p Profile) []string {
	if RequiresLicense(p.PositionID) && !IsTrue(p.License) {
		return []string{ReasonLicense}
	}
	return nil
}

func checkAvailability(p Profile) []string {
	if !IsTrue(p.Available) {
		return []string{ReasonAvailability}
	}
	return nil
}

type miningRule struct {
	matcher BranchMatcher
	logger  *zap.Logger
}

func (r *miningRule) Name() string { return "mining_branch" }

func (r *miningRule) Check(ctx context.Context, p Profile) []string {
	if !IsMining(p.PositionID) {
		return nil
	}

	branch := strings.TrimSpace(p.MiningBranch)
	city := strings.TrimSpace(p.City)
	if branch == "" || city == "" {
		return []string{ReasonMiningMissingData}
	}

	if r.matches(ctx, city, branch) || branch == BranchOther {
		return nil
	}

	return []string{fmt.Sprintf("Ubicación (%s) no coincide con Sucursal (%s)", city, branch)}
}

func (r *miningRule) matches(ctx context.Context, city, branch string) bool {
	c := textnorm.Normalize(city)
	b := textnorm.Normalize(branch)

	if strings.Contains(c, b) || strings.Contains(b, c) {
		return true
	}

	for fragment, target := range branchSynonyms {
		if strings.Contains(c, fragment) && strings.Contains(b, target) {
			return true
		}
	}

	if r.matcher == nil {
		return false
	}

	ok, err := r.matcher.SameRegion(ctx, city, branch)
	if err != nil {
		r.logger.Warn("branch matcher failed", zap.String("city", city), zap.String("branch", branch), zap.Error(err))
		return false
	}
	return ok
}
