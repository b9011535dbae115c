package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"relsync/core/relation"
	"relsync/feature/article"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for article commands
	requestFile string
	dryRun      bool
	articleID   int
	yesConfirm  bool
)

// articleCmd is the parent command for article operations.
var articleCmd = &cobra.Command{
	Use:   "article",
	Short: "Save or delete articles with their relations",
}

// articleSaveCmd saves an article request read from a JSON file.
var articleSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save an article and reconcile its relations",
	Long: `Save an article from a JSON request and reconcile its cover, images,
files and tags in one transaction.

Examples:
  # Create a new article
  relsync article save --file request.json

  # Read the request from stdin
  cat request.json | relsync article save --file -

  # Show what would change without writing
  relsync article save --file request.json --dry-run`,
	RunE: runArticleSave,
}

// articleDeleteCmd deletes an article and everything related to it.
var articleDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an article and its related records",
	RunE:  runArticleDelete,
}

func init() {
	articleSaveCmd.Flags().StringVarP(&requestFile, "file", "f", "", "Path to the JSON request, or - for stdin")
	articleSaveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the planned changes without writing")
	_ = articleSaveCmd.MarkFlagRequired("file")

	articleDeleteCmd.Flags().IntVar(&articleID, "id", 0, "Article ID")
	articleDeleteCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the deletion (non-interactive)")
	_ = articleDeleteCmd.MarkFlagRequired("id")

	articleCmd.AddCommand(articleSaveCmd, articleDeleteCmd)
	RootCmd.AddCommand(articleCmd)
}

func runArticleSave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	req, err := readRequest(cmd.InOrStdin(), requestFile)
	if err != nil {
		return err
	}

	svc, l, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	var res *article.Result
	if dryRun {
		res, err = svc.Preview(ctx, req)
	} else {
		res, err = svc.Save(ctx, req)
	}
	if res != nil {
		printResult(l, res)
	}
	if isRejected(err) {
		return fmt.Errorf("article rejected: %w", err)
	}
	if err != nil {
		return err
	}

	if dryRun {
		l.Info("Dry-run mode: No changes were made.")
	}
	return nil
}

func runArticleDelete(cmd *cobra.Command, args []string) error {
	svc, l, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	if !confirmDestructiveAction(cmd.InOrStdin(), cmd.OutOrStdout()) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}
	return svc.Delete(context.Background(), articleID)
}

// readRequest decodes a request from path, or from stdin when path is "-".
func readRequest(stdin io.Reader, path string) (article.Request, error) {
	var req article.Request

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("failed to decode request: %w", err)
	}
	return req, nil
}

// printResult logs the per-attribute plans and any rejected input.
func printResult(l *zap.Logger, res *article.Result) {
	for _, plan := range res.Plans {
		l.Info("Planned changes",
			zap.String("attribute", plan.Attribute),
			zap.String("kind", plan.Kind.String()),
			zap.Int("inserts", plan.Summary.Inserts),
			zap.Int("deletes", plan.Summary.Deletes),
			zap.Int("unchanged", plan.Summary.Unchanged),
		)
	}
	for attr, msgs := range res.Errors {
		l.Warn("Rejected input", zap.String("attribute", attr), zap.Strings("errors", msgs))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(in io.Reader, out io.Writer) bool {
	if yesConfirm {
		fmt.Fprintln(out, "\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Fprintf(out, "\n⚠️  Type 'yes' to delete article %d and its related records: ", articleID)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}

// isRejected reports whether err only reflects rejected input.
func isRejected(err error) bool {
	return err != nil && !relation.IsFatal(err)
}
