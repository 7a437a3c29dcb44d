package cmd

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Natural-Intelligence/be-revisable/internal/config"
	"github.com/Natural-Intelligence/be-revisable/internal/model"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

func init() {
	rootCmd.AddCommand(revisionsCmd())
}

func revisionsCmd() *cobra.Command {
	var setID string

	command := &cobra.Command{
		Use:   "revisions",
		Short: "List the revision timeline of a revision set",
		Run: func(cmd *cobra.Command, args []string) {
			if setID == "" {
				logrus.Error("revision set id is required")
				return
			}

			db := config.GetDb(config.LoadConfig())
			gormStore := store.NewGormStore(db)

			ctx := context.Background()
			set, err := gormStore.GetRevisionSet(ctx, setID)
			if err != nil {
				logrus.Errorf("failed to get revision set: %v", err)
				return
			}

			infos, err := gormStore.ListRevisionsByStatus(ctx, set.ID,
				model.StatusPrimaryDraft, model.StatusTemporaryDraft,
				model.StatusLatestRelease, model.StatusExpired,
				model.StatusDeprecated, model.StatusDeprecatingDraft,
				model.StatusDeleted,
			)
			if err != nil {
				logrus.Errorf("failed to list revisions: %v", err)
				return
			}

			color.Green("revision set %s (%s), %d revisions", set.ID, set.EntityType, len(infos))

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Status", "Released At", "Expired At", "Released By", "Deprecated At"})
			for _, info := range infos {
				table.Append([]string{
					info.ID,
					statusCell(info.Status),
					timeCell(info.ReleasedAt),
					timeCell(info.ExpiredAt),
					stringCell(info.ReleasedBy),
					timeCell(info.DeprecatedAt),
				})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&setID, "set", "s", "", "revision set id")

	return command
}

func statusCell(status model.Status) string {
	switch status {
	case model.StatusLatestRelease:
		return color.GreenString(status.String())
	case model.StatusPrimaryDraft, model.StatusTemporaryDraft, model.StatusDeprecatingDraft:
		return color.YellowString(status.String())
	case model.StatusDeprecated, model.StatusDeleted:
		return color.RedString(status.String())
	default:
		return status.String()
	}
}

func timeCell(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func stringCell(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
