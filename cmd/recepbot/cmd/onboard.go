package cmd

import (
	"fmt"
	"os"

	"github.com/kamir/recepbot/internal/config"
	"github.com/spf13/cobra"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration",
	Run:   runOnboard,
}

var onboardForce bool

func init() {
	onboardCmd.Flags().BoolVarP(&onboardForce, "force", "f", false, "Overwrite existing config.json")
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, args []string) {
	printHeader("recepbot onboard")

	path, err := config.ConfigPath()
	if err != nil {
		fail("Config path error: %v", err)
	}

	// If config already exists, do not overwrite unless -f/--force is set.
	if _, err := os.Stat(path); err == nil && !onboardForce {
		fmt.Printf("Config already exists at: %s\n", path)
		fmt.Println("Use --force (-f) to overwrite.")
		return
	}

	cfg := config.DefaultConfig()
	if err := config.Save(cfg); err != nil {
		fail("Error saving config: %v", err)
	}
	fmt.Printf("Config created at: %s\n", path)

	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("1. Set GEMINI_API_KEY, TRELLO_KEY, TRELLO_TOKEN and TRELLO_LIST_ID (or edit config.json).")
	fmt.Println("2. Run 'recepbot agent -m \"Olá\"' to try the pipeline locally.")
	fmt.Println("3. Run 'recepbot gateway' and scan the QR code with WhatsApp.")
}
