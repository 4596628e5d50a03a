package dialogue

import (
	"slices"
	"strings"

	"github.com/spigell/recruit-bot/internal/textnorm"
)

var (
	helpWords    = []string{"ayuda", "help", "menu"}
	restartWords = []string{"reiniciar", "restart", "empezar", "nuevo"}

	startPhrases = []string{
		"empezar", "empieza", "empesar", "iniciar", "comenzar",
		"postular", "postulacion",
		"quiero trabajar", "deseo trabajar", "quiero un trabajo",
	}
	startWords = []string{"si", "claro", "dale", "vamos", "listo"}
)

func isHelp(norm string) bool {
	return slices.Contains(helpWords, norm)
}

func isRestart(norm string) bool {
	return slices.Contains(restartWords, norm)
}

// isReset recognizes an explicit request to start over.
func isReset(norm string) bool {
	return strings.HasPrefix(norm, "reiniciar") || norm == "restart"
}

func isStatus(norm string) bool {
	return norm == "estado" || norm == "status"
}

// isStart recognizes a wish to begin the application.
func isStart(norm string) bool {
	if norm == "" {
		return false
	}
	return textnorm.ContainsAny(norm, startPhrases...) || textnorm.HasAnyWord(norm, startWords...)
}
