package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/feedback"
	"github.com/dominggo/ai-osp/internal/models"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Submit and manage planning feedback",
	Long: `Feedback is submitted to the layer server once; if the server is
unreachable the record is stored locally and sent on a later flush.`,
}

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a feedback record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if feedbackRating < 1 || feedbackRating > 5 {
			return fmt.Errorf("rating must be between 1 and 5")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		q, err := feedback.Open(baseDir)
		if err != nil {
			return err
		}
		defer q.Close()

		api := newAPIClient(cfg)
		rec := models.FeedbackRecord{
			Rating:       feedbackRating,
			Comments:     feedbackComments,
			LinkedResult: feedbackResult,
		}
		stored, err := q.Submit(cmd.Context(), rec, func(ctx context.Context, r models.FeedbackRecord) error {
			return api.SubmitFeedback(ctx, r)
		})
		if err != nil {
			return err
		}
		if stored {
			n, _ := q.Len()
			fmt.Printf("Server unreachable; feedback stored locally (%d pending)\n", n)
			return nil
		}
		fmt.Println("Feedback submitted")
		return nil
	},
}

var feedbackFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Retry sending locally stored feedback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		q, err := feedback.Open(baseDir)
		if err != nil {
			return err
		}
		defer q.Close()

		api := newAPIClient(cfg)
		sent, remaining, err := q.Flush(cmd.Context(), func(ctx context.Context, r models.FeedbackRecord) error {
			return api.SubmitFeedback(ctx, r)
		})
		if err != nil {
			return err
		}
		fmt.Printf("Flushed %d record(s), %d still pending\n", sent, remaining)
		return nil
	},
}

var feedbackPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List feedback waiting to be sent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := feedback.Open(baseDir)
		if err != nil {
			return err
		}
		defer q.Close()

		recs, err := q.Pending()
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No pending feedback")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("%s  rating=%d  %s\n", r.Timestamp.Format("2006-01-02 15:04"), r.Rating, r.Comments)
		}
		return nil
	},
}

var (
	feedbackRating   int
	feedbackComments string
	feedbackResult   string
)

func init() {
	feedbackSubmitCmd.Flags().IntVarP(&feedbackRating, "rating", "r", 0, "rating from 1 to 5")
	feedbackSubmitCmd.Flags().StringVarP(&feedbackComments, "comments", "c", "", "free-form comments")
	feedbackSubmitCmd.Flags().StringVar(&feedbackResult, "result", "", "identifier of the plan result this feedback refers to")
	feedbackSubmitCmd.MarkFlagRequired("rating")

	feedbackCmd.AddCommand(feedbackSubmitCmd)
	feedbackCmd.AddCommand(feedbackFlushCmd)
	feedbackCmd.AddCommand(feedbackPendingCmd)
	rootCmd.AddCommand(feedbackCmd)
}
