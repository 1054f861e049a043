package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mzassist/internal/types"
)

var creationsStatus string

var creationsCmd = &cobra.Command{
	Use:   "creations",
	Short: "List everything you have created, newest first",
	RunE:  runCreations,
}

func init() {
	creationsCmd.Flags().StringVar(&creationsStatus, "status", "", "Filter by status (pending, completed, failed)")
}

func runCreations(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	entries := rt.ledger.List()
	if len(entries) == 0 {
		fmt.Println("No creations yet.")
		return nil
	}

	filter := types.CreationStatus(creationsStatus)
	shown := 0
	for _, e := range entries {
		if filter != "" && e.Status != filter {
			continue
		}
		shown++
		when := time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04")
		fmt.Printf("%s  %-12s %-10s %s\n", when, e.Type, e.Status, truncate(e.Prompt, 60))
		if e.Error != "" {
			fmt.Printf("    %s\n", e.Error)
		}
	}
	if shown == 0 {
		fmt.Println("No creations match the filter.")
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
