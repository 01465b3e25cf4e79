package main

import (
	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/chat"
	"github.com/plume-cli/plume/internal/configuration"
)

const configFilepath = "~/.config/plume/config.json"

var rootCmd = &cobra.Command{
	Use:     "plume",
	Short:   "A chat assistant for your terminal",
	Version: "1.0",
}

func main() {
	config, err := configuration.Parse(configFilepath)
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(chat.NewCmd(config))
	rootCmd.Execute()
}
