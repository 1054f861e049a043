package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mzassist/internal/types"
)

var (
	chatMode  string
	chatImage string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message to the active conversation",
	Long: `Sends a single message to the most recently used conversation and
prints the reply. Without arguments, starts the interactive chat.

Modes:
  default        rich conversational answers
  google_search  answers grounded in web search, with cited sources
  quick_response terse low-latency answers
  learning       teach the assistant facts to remember in this chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "", "Response mode (defaults to the configured one)")
	chatCmd.Flags().StringVar(&chatImage, "image", "", "Attach an image file to the message")
}

func runChat(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runInteractiveChat()
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	parts := []types.Part{types.TextPart(strings.Join(args, " "))}
	if chatImage != "" {
		img, err := loadImageFile(chatImage)
		if err != nil {
			return err
		}
		parts = append(parts, types.Part{Image: img})
	}

	reply, err := rt.manager.Send(cmd.Context(), parts, types.ChatMode(chatMode))
	if err != nil {
		return err
	}
	printReply(reply)
	return nil
}

func printReply(turn types.Turn) {
	fmt.Println(turn.Text())
	if turn.DebugInfo != nil {
		fmt.Printf("\n[%s %s, %dms, %d tokens]\n",
			turn.DebugInfo.Provider, turn.DebugInfo.Model,
			turn.DebugInfo.ResponseTimeMs, turn.DebugInfo.TotalTokens)
	}
}
