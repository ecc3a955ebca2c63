// Package cli wires the cobra command tree. Commands hold no business logic;
// collaborators are injected through Dependencies so tests can run the tree
// against fakes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sherpai/sherpai/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Server runs the webhook listener until ctx is cancelled.
type Server interface {
	Serve(ctx context.Context, addr string) error
}

// LocalReviewer runs a review against a local repository.
type LocalReviewer interface {
	ReviewLocal(ctx context.Context, req review.LocalRequest) (review.Result, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Server        Server
	LocalReviewer LocalReviewer
	Args          Arguments
	DefaultAddr   string
	DefaultRepo   string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "sherpai",
		Short: "AI pull-request reviewer",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(serveCommand(deps.Server, deps.DefaultAddr))

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Run a code review",
	}
	reviewCmd.AddCommand(localCommand(deps.LocalReviewer, deps.DefaultRepo))
	root.AddCommand(reviewCmd)

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func serveCommand(server Server, defaultAddr string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen for GitHub webhooks and review pull requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == nil {
				return errors.New("server is not configured")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			return server.Serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "Listen address")

	return cmd
}

func localCommand(reviewer LocalReviewer, defaultRepo string) *cobra.Command {
	var baseRef string
	var targetRef string
	var repoName string

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Review a local branch against a base ref",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reviewer == nil {
				return errors.New("local reviewer is not configured")
			}

			result, err := reviewer.ReviewLocal(cmd.Context(), review.LocalRequest{
				RepoName:  repoName,
				BaseRef:   baseRef,
				TargetRef: targetRef,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reviewed %d files, posted %d comments (%d deduplicated)\n",
				result.FilesProcessed, result.Posted, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "main", "Base ref to diff against")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target ref (defaults to the checked-out branch)")
	cmd.Flags().StringVar(&repoName, "repo", defaultRepo, "Repository name used in output and cache keys")

	return cmd
}
