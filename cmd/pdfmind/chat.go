package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pdfmind/internal/logger"
	"pdfmind/internal/session"
	"pdfmind/internal/tui"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [file.pdf]",
		Short: "Chat with a PDF in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			// console output would corrupt the TUI
			log := logger.NewFileLogger(cfg.Log.File)
			defer func() { _ = log.Sync() }()

			deps, err := newDeps(cfg, os.Getenv, log, nil)
			if err != nil {
				return err
			}
			sess := session.New(uuid.NewString(), deps)
			defer sess.Close()

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			_, err = tea.NewProgram(tui.New(sess, path), tea.WithAltScreen()).Run()
			return err
		},
	}
}
