package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/pkg/client"
)

const defaultServer = "http://localhost:8080"

// app is the state shared by every subcommand.
type app struct {
	cfgFile   string
	tokenFile string
	query     string

	client *client.Client
	token  *client.TokenFile
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "codenest",
		Short:         "Drive a CodeNest workspace from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.codenest.yaml)")
	flags.StringVar(&a.tokenFile, "token-file", "", "session token file (default is $HOME/.config/codenest/token.json)")
	flags.StringVarP(&a.query, "query", "q", "", "JMESPath expression applied to JSON output")
	flags.String("server", defaultServer, "CodeNest server URL")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Duration("timeout", 60*time.Second, "request timeout")
	viper.BindPFlag("server", flags.Lookup("server"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("timeout", flags.Lookup("timeout"))

	root.AddCommand(
		newSessionCmd(a),
		newStateCmd(a),
		newTemplateCmd(a),
		newFileCmd(a),
		newSearchCmd(a),
		newTabCmd(a),
		newRunCmd(a),
		newExecCmd(a),
		newSummarizeCmd(a),
		newTermCmd(a),
		newSnippetsCmd(a),
		newNotesCmd(a),
		newSnapshotCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	if a.cfgFile != "" {
		viper.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".codenest")
	}
	viper.SetEnvPrefix("CODENEST")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := logging.Init(logging.Config{
		Level:      viper.GetString("log_level"),
		Format:     "console",
		OutputPath: "stderr",
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	server := viper.GetString("server")
	token := viper.GetString("token")
	if token == "" {
		if tf, err := client.LoadToken(a.tokenFile); err == nil {
			a.token = tf
			if tf.Server != "" && !cmd.Flags().Changed("server") && !viper.IsSet("server") {
				server = tf.Server
			}
			if tf.IsExpired(time.Minute) {
				logging.Warn("saved session token has expired; run `codenest session new`",
					logging.String("path", a.tokenPath()))
			} else {
				token = tf.Token
			}
		}
	}

	a.client = client.New(client.Config{
		BaseURL:   server,
		Timeout:   viper.GetDuration("timeout"),
		AuthToken: token,
	})
	return nil
}

func (a *app) tokenPath() string {
	if a.tokenFile != "" {
		return a.tokenFile
	}
	return client.TokenFilePath()
}

func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
}

// readSource returns the contents of path, or stdin when path is "-" or
// empty.
func readSource(in io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(in)
		return string(data), err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	return string(data), err
}
