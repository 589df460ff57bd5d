package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/eligibility"
	"github.com/spigell/broker-genie/internal/intake"
	"github.com/spigell/broker-genie/internal/plans"
)

const (
	PromptSave             = "Save client"
	PromptReportByCategory = "Report by category"
	PromptPlansToFile      = "Dump plans to file"
	PromptExplain          = "Explain excluded plans"
	PromptExit             = "Exit"
)

var errExit = errors.New("exit requested")

var matchPrompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptSave, PromptReportByCategory, PromptPlansToFile, PromptExplain, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match an intake form against the plan catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("intake", "i", "", "intake form in YAML or JSON (required)")
	matchCmd.Flags().StringP("category", "c", "", "keep only plans of this category")
	matchCmd.Flags().StringP("search", "s", "", "keep only plans mentioning this text")
	matchCmd.Flags().String("sort", "", "sort by price, company, product or category")
	matchCmd.Flags().Bool("desc", false, "sort in descending order")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "save the client without asking")

	matchCmd.MarkFlagRequired("intake")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()
	logger := env.logger

	path, _ := cmd.Flags().GetString("intake")
	sub, err := readSubmission(path)
	if err != nil {
		logger.Fatal("reading intake form", zap.String("file", path), zap.Error(err))
	}

	view := viewFromFlags(cmd)
	svc := env.intake()

	res, err := svc.Match(ctx, env.config.User, sub, view)
	if err != nil {
		logger.Fatal("matching plans", zap.Error(err))
	}

	logger.Debug("filters applied", zap.Any("filters", res.Filters))
	logger.Info("client qualifies for plans",
		zap.String("client", res.Client.FullName),
		zap.Int("count", len(res.Plans)),
	)
	for _, p := range res.Plans {
		fmt.Printf("%s\t%s - %s (%s)\t%s\n", p.ID, p.CompanyName, p.ProductName, p.ProductCategory, p.PriceLabel())
	}

	if auto, _ := cmd.Flags().GetBool("auto-approve"); auto {
		if err := handleMatchAction(ctx, PromptSave, svc, res, logger); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := matchPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleMatchAction(ctx, action, svc, res, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleMatchAction(ctx context.Context, action string, svc *intake.Service, res *intake.Result, logger *zap.Logger) error {
	matched := &plans.Plans{Items: res.Plans}

	switch action {
	case PromptSave:
		if res.Saved {
			logger.Info("client is already saved", zap.String("client_id", res.Client.ID))
			return nil
		}
		if err := svc.Save(ctx, res.Client); err != nil {
			return err
		}
		res.Saved = true
		logger.Info("client saved", zap.String("client_id", res.Client.ID), zap.Int("dependents", len(res.Client.Dependents)))
		return nil
	case PromptReportByCategory:
		pretty, _ := json.MarshalIndent(matched.ReportByCategory(), "", "  ")
		logger.Info(string(pretty), zap.Int("plans count", matched.Len()))
		return nil
	case PromptPlansToFile:
		filename, err := matched.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump plans to file: %w", err)
		}
		logger.Info("dumping plans to file", zap.String("filename", filename))
		return nil
	case PromptExplain:
		verdicts, err := svc.Explain(ctx, res.Client.Profile())
		if err != nil {
			return err
		}
		printExclusions(verdicts)
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printExclusions(verdicts []eligibility.Verdict) {
	excluded := 0
	for _, v := range verdicts {
		if v.Eligible {
			continue
		}
		excluded++
		if len(v.Overlap) > 0 {
			fmt.Printf("%s\t%s: %s\n", v.PlanID, v.Reason, strings.Join(v.Overlap, ", "))
			continue
		}
		fmt.Printf("%s\t%s\n", v.PlanID, v.Reason)
	}
	if excluded == 0 {
		fmt.Println("no plans were excluded")
	}
}

// readSubmission loads an intake form. JSON is valid YAML, so both go through the YAML decoder.
func readSubmission(path string) (*clients.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", clients.ErrInvalidSubmission, err)
	}

	return clients.DecodeSubmission(raw)
}

func viewFromFlags(cmd *cobra.Command) intake.View {
	flags := cmd.Flags()
	category, _ := flags.GetString("category")
	search, _ := flags.GetString("search")
	sort, _ := flags.GetString("sort")
	desc, _ := flags.GetBool("desc")

	return intake.View{Category: category, Search: search, Sort: sort, Desc: desc}
}
