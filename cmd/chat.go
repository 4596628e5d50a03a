package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/recruit-bot/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	localChatID = "local@c.us"
	exitWord    = "salir"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Run: func(_ *cobra.Command, _ []string) {
		chat()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chat() {
	ctx := context.Background()

	// Logs go to stderr so they do not interleave with the conversation.
	logger, err := logger.Build(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	b, err := newBot(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the bot", zap.Error(err))
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("closing resources", zap.Error(err))
		}
	}()

	fmt.Printf("Chat local (%s). Escribe '%s' para terminar.\n\n", localChatID, exitWord)

	prompt := promptui.Prompt{Label: "Tú"}
	for {
		text, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return
		}
		if err != nil {
			logger.Fatal("reading input", zap.Error(err))
		}
		if strings.EqualFold(strings.TrimSpace(text), exitWord) {
			return
		}

		fmt.Printf("\n🤖 %s\n\n", b.engine.Process(ctx, localChatID, text))
	}
}
