package hooks

import (
	"fmt"
	"sort"
)

// Trigger names accepted by Handler.
const (
	TriggerPreSignUp       = "pre-signup"
	TriggerDefineChallenge = "define-challenge"
	TriggerCreateChallenge = "create-challenge"
	TriggerVerifyChallenge = "verify-challenge"
)

// Handler returns the function for trigger, suitable for lambda.Start.
func (h *Handlers) Handler(trigger string) (any, error) {
	handlers := h.byTrigger()
	fn, ok := handlers[trigger]
	if !ok {
		return nil, fmt.Errorf("unknown trigger %q (want one of %v)", trigger, Triggers())
	}
	return fn, nil
}

func (h *Handlers) byTrigger() map[string]any {
	return map[string]any{
		TriggerPreSignUp:       h.PreSignUp,
		TriggerDefineChallenge: h.DefineAuthChallenge,
		TriggerCreateChallenge: h.CreateAuthChallenge,
		TriggerVerifyChallenge: h.VerifyAuthChallenge,
	}
}

// Triggers lists the supported trigger names.
func Triggers() []string {
	names := make([]string, 0, 4)
	for name := range (&Handlers{}).byTrigger() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
