package cli

import (
	"studyrag/internal/rag"
	"studyrag/internal/util"

	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		count int
		topic string
		llm   string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "generate [material-id]",
		Short: "Generate multiple-choice questions for a ready material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			pipeline, err := a.Services.PipelineFor(llm)
			if err != nil {
				return err
			}
			n := min(count, a.Cfg.MaxQuestions)
			qs, err := pipeline.GenerateForMaterial(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			rag.TagTopic(qs, topic)
			if err := a.Store.SaveQuestions(cmd.Context(), qs); err != nil {
				return err
			}
			if out != "" {
				if err := util.WriteJSONAtomic(out, qs); err != nil {
					return err
				}
			}
			if opts.jsonOut {
				return printJSON(cmd, qs)
			}
			cmd.Printf("Generated %d of %d requested.\n\n", len(qs), n)
			for i, q := range qs {
				cmd.Printf("[%d] %s\n", i+1, q.Question)
				for j, ans := range q.Answers {
					mark := " "
					if j == q.CorrectAnswerIndex {
						mark = "*"
					}
					cmd.Printf("   %s %c) %s\n", mark, 'A'+rune(j), ans)
				}
				cmd.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of questions")
	cmd.Flags().StringVar(&topic, "topic", "", "topic stored on the questions")
	cmd.Flags().StringVar(&llm, "llm", "", "configured LLM provider to use")
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the questions to this JSON file")
	return cmd
}

func newValidateCmd(opts *options) *cobra.Command {
	var question, answer, correct string
	cmd := &cobra.Command{
		Use:   "validate [material-id]",
		Short: "Check how well an answer is grounded in a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.app.Services.Pipeline.ValidateAnswer(cmd.Context(), args[0], question, answer)
			if err != nil {
				return err
			}
			isCorrect := correct != "" && answer == correct
			if opts.jsonOut {
				return printJSON(cmd, map[string]any{"is_correct": isCorrect, "validation": res})
			}
			cmd.Printf("valid=%t confidence=%.3f", res.IsValid, res.Confidence)
			if correct != "" {
				cmd.Printf(" correct=%t", isCorrect)
			}
			cmd.Println()
			for _, ex := range res.SupportingExcerpts {
				cmd.Printf("  > %s\n", ex)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question text")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "answer to check")
	cmd.Flags().StringVar(&correct, "correct", "", "expected answer, reported as correct=true|false")
	_ = cmd.MarkFlagRequired("answer")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [material-id] [query]",
		Short: "Rank a material's chunks against a query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := opts.app.Services.Pipeline.Search(cmd.Context(), args[0], args[1], limit)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd, results)
			}
			if len(results) == 0 {
				cmd.Println("No results found.")
				return nil
			}
			for i, r := range results {
				cmd.Printf("[%d] chunk %d (%.3f)\n    %s\n", i+1, r.ChunkIndex, r.Score, r.Snippet)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum number of results")
	return cmd
}

func newFlashcardsCmd(opts *options) *cobra.Command {
	var (
		count int
		llm   string
	)
	cmd := &cobra.Command{
		Use:   "flashcards [material-id]",
		Short: "Generate study flashcards for a ready material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := opts.app.Services.PipelineFor(llm)
			if err != nil {
				return err
			}
			cards, err := pipeline.Flashcards(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd, cards)
			}
			for i, c := range cards {
				cmd.Printf("[%d] Q: %s\n    A: %s\n", i+1, c.Question, c.Answer)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of flashcards (1-20)")
	cmd.Flags().StringVar(&llm, "llm", "", "configured LLM provider to use")
	return cmd
}

func newAskCmd(opts *options) *cobra.Command {
	var (
		sources int
		llm     string
	)
	cmd := &cobra.Command{
		Use:   "ask [material-id] [question]",
		Short: "Answer a question from a material's most relevant chunks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := opts.app.Services.PipelineFor(llm)
			if err != nil {
				return err
			}
			ans, err := pipeline.Answer(cmd.Context(), args[0], args[1], sources)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd, ans)
			}
			cmd.Println(ans.Answer)
			for _, s := range ans.Sources {
				cmd.Printf("  [chunk %d] %s\n", s.ChunkIndex, s.Snippet)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&sources, "sources", "k", rag.DefaultAnswerSources, "number of chunks to answer from")
	cmd.Flags().StringVar(&llm, "llm", "", "configured LLM provider to use")
	return cmd
}
