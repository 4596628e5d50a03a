package ai

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/recruit-bot/internal/metrics"
	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/textnorm"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every collaborator call.
const DefaultTimeout = 20 * time.Second

// Adapter puts a timeout, metrics and local validation around the AI
// collaborator. A zero Adapter, or one built with nil collaborators, answers
// every call as if the AI were down.
type Adapter struct {
	extractor Extractor
	responder Responder
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAdapter wraps the collaborators. Either may be nil.
func NewAdapter(extractor Extractor, responder Responder, timeout time.Duration, logger *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Adapter{
		extractor: extractor,
		responder: responder,
		timeout:   timeout,
		logger:    logger,
	}
}

// Enabled reports whether answers can be sent to the collaborator.
func (a *Adapter) Enabled() bool {
	return a != nil && a.extractor != nil
}

// ExtractAndValidate asks the collaborator to read an answer the
// deterministic extractor rejected, then re-validates what came back.
// fallback is the deterministic clarification. The result never carries an
// update unless it is valid, and collaborator failures only make it invalid.
func (a *Adapter) ExtractAndValidate(ctx context.Context, req ExtractRequest, fallback string) recruit.Result {
	invalid := recruit.Result{Clarification: fallback}
	if !a.Enabled() {
		return invalid
	}

	req.Fields = recruit.AllowedFields(req.Key)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	ext, err := a.extractor.ExtractAndValidate(callCtx, req)
	metrics.AIRequest("extract", started, err)
	if err != nil {
		a.logger.Warn("ai extraction failed", zap.String("key", string(req.Key)), zap.Error(err))
		return invalid
	}
	if ext == nil {
		return invalid
	}

	data := allow(ext.Data, req.Fields)
	firewallMsg, clean := firewall(data, req.Profile)
	if !clean {
		a.logger.Info("ai extraction rejected by firewall",
			zap.String("key", string(req.Key)),
			zap.String("reason", firewallMsg),
		)
	}

	update, err := decodeProfile(data)
	if err != nil {
		a.logger.Warn("ai extraction has malformed fields", zap.String("key", string(req.Key)), zap.Error(err))
		return invalid
	}
	update = recruit.Derive(update, req.Profile)

	if ext.Valid && clean && !update.IsZero() {
		a.logger.Debug("ai extraction accepted", zap.String("key", string(req.Key)), zap.Int("fields", len(data)))
		return recruit.Result{Valid: true, Update: update}
	}

	return recruit.Result{Clarification: firstNonEmpty(firewallMsg, fallback, ext.BotResponse)}
}

// Freeform asks the collaborator for a reply to text given a context summary.
func (a *Adapter) Freeform(ctx context.Context, text, contextSummary string) (string, error) {
	if a == nil || a.responder == nil {
		return "", ErrNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	reply, err := a.responder.Freeform(callCtx, text, contextSummary)
	metrics.AIRequest("freeform", started, err)
	if err != nil {
		return "", fmt.Errorf("freeform reply: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("freeform reply: empty response")
	}
	return reply, nil
}

// SameRegion lets the collaborator decide whether city belongs to branch.
// It satisfies recruit.BranchMatcher.
func (a *Adapter) SameRegion(ctx context.Context, city, branch string) (bool, error) {
	if a == nil || a.responder == nil {
		return false, ErrNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	same, err := a.responder.SameRegion(callCtx, city, branch)
	metrics.AIRequest("same_region", started, err)
	if err != nil {
		return false, fmt.Errorf("branch match: %w", err)
	}
	return same, nil
}

func decodeProfile(data map[string]any) (recruit.Profile, error) {
	var p recruit.Profile
	if len(data) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       spanishBool,
		Result:           &p,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(data); err != nil {
		return recruit.Profile{}, err
	}
	return p, nil
}

// spanishBool lets string answers such as "sí" or "no" decode into bools.
func spanishBool(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}

	v, _ := data.(string)
	switch textnorm.Normalize(v) {
	case "si", "yes", "true", "1", "acepto":
		return true, nil
	case "no", "false", "0":
		return false, nil
	}
	return data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
