package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/ai"
)

const exitWord = "exit"

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask the assistant about plans, conditions, medications and prices",
	Long:  "With a question the answer is printed once. Without one an interactive session starts; type exit to leave.",
	Run: func(_ *cobra.Command, args []string) {
		chat(args)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chat(args []string) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	assistant := env.assistant(ctx)
	env.logger.Debug("assistant ready", zap.String("assistant", assistant.Name()))

	if question := strings.Join(args, " "); strings.TrimSpace(question) != "" {
		fmt.Println(ask(ctx, env, assistant, question))
		return
	}

	fmt.Println(ai.Greeting)

	prompt := promptui.Prompt{Label: "You"}
	for {
		question, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			env.logger.Fatal("exiting", zap.Error(err))
		}

		question = strings.TrimSpace(question)
		switch {
		case question == "":
			continue
		case strings.EqualFold(question, exitWord):
			return
		}

		fmt.Println(ask(ctx, env, assistant, question))
	}
}

// ask answers one question. Failures are logged and replaced with the generic error reply.
func ask(ctx context.Context, env *appEnv, assistant ai.Assistant, question string) string {
	if user := env.config.User; user != "" {
		entry := activity.NewEntry(user, activity.TypeAIChat, map[string]any{"message_length": len(question)})
		if err := env.activity.Record(ctx, entry); err != nil {
			env.logger.Warn("recording activity", zap.Error(err))
		}
	}

	kb, err := ai.LoadKnowledgeBase(ctx, env.catalog)
	if err != nil {
		env.logger.Error("loading knowledge base", zap.Error(err))
		return ai.ErrorReply
	}

	answer, err := assistant.Answer(ctx, question, kb)
	if err != nil {
		env.logger.Error("assistant failed", zap.Error(err))
		return ai.ErrorReply
	}
	return answer
}
