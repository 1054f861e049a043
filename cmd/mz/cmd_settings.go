package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mzassist/internal/types"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change assistant settings",
	RunE:  runShowSettings,
}

var settingsNameCmd = &cobra.Command{
	Use:   "name [user-name]",
	Short: "Set the name used in greetings",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetName,
}

var settingsKeyCmd = &cobra.Command{
	Use:   "key [api-key]",
	Short: "Store a Gemini API key (overrides the configured one)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetKey,
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode [default|google_search|quick_response|learning]",
	Short: "Set the default chat mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetMode,
}

var developerMode bool

var settingsDeveloperCmd = &cobra.Command{
	Use:   "developer",
	Short: "Toggle developer mode (attaches debug metadata to replies)",
	RunE:  runSetDeveloper,
}

func init() {
	settingsDeveloperCmd.Flags().BoolVar(&developerMode, "on", true, "Enable or disable developer mode")

	settingsCmd.AddCommand(settingsNameCmd)
	settingsCmd.AddCommand(settingsKeyCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	settingsCmd.AddCommand(settingsDeveloperCmd)
}

func runShowSettings(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	st := rt.store.LoadSettings()
	p := rt.store.LoadProfile()
	fmt.Printf("user name:      %s\n", valueOr(p.UserName, "(unset)"))
	fmt.Printf("default mode:   %s\n", rt.manager.DefaultMode())
	fmt.Printf("developer mode: %v\n", st.DeveloperMode)
	fmt.Printf("api key:        %s\n", maskKey(st.APIKey, rt.client.HasAPIKey()))
	return nil
}

func runSetName(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	p := rt.store.LoadProfile()
	p.UserName = args[0]
	if err := rt.store.SaveProfile(p); err != nil {
		return err
	}
	fmt.Println("Saved.")
	return nil
}

func runSetKey(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	st := rt.store.LoadSettings()
	st.APIKey = args[0]
	if err := rt.store.SaveSettings(st); err != nil {
		return err
	}
	fmt.Println("Saved.")
	return nil
}

func runSetMode(cmd *cobra.Command, args []string) error {
	mode := types.ChatMode(args[0])
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q", args[0])
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	st := rt.store.LoadSettings()
	st.DefaultMode = mode
	if err := rt.store.SaveSettings(st); err != nil {
		return err
	}
	fmt.Println("Saved.")
	return nil
}

func runSetDeveloper(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	st := rt.store.LoadSettings()
	st.DeveloperMode = developerMode
	if err := rt.store.SaveSettings(st); err != nil {
		return err
	}
	fmt.Printf("Developer mode: %v\n", st.DeveloperMode)
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func maskKey(stored string, configured bool) string {
	switch {
	case stored != "":
		return "(stored in settings)"
	case configured:
		return "(from config/env)"
	default:
		return "(not set)"
	}
}
