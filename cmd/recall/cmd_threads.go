package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recall/internal/store"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List your conversation threads",
	RunE:  runThreads,
}

func runThreads(cmd *cobra.Command, args []string) error {
	if ownerID == "" {
		return fmt.Errorf("no owner id: set --owner or RECALL_OWNER")
	}

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	threads, err := st.ListThreads(cmd.Context(), ownerID)
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Println("No conversation threads yet.")
		return nil
	}

	for _, th := range threads {
		marker := " "
		if th.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  (last active %s)\n",
			marker, th.ID, th.Title, th.LastMessageAt.Format("2006-01-02 15:04"))
	}
	return nil
}
