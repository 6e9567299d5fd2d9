package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cuality/internal/output"
	"github.com/blackwell-systems/cuality/internal/pulls"
)

var (
	pullsFlagToken   string
	pullsFlagOutput  string
	pullsFlagAPIURL  string
	pullsFlagPerPage int
)

var pullsCmd = &cobra.Command{
	Use:   "pulls <owner/repo>",
	Short: "Export pull requests to CSV",
	Long: `Pulls fetches every pull request of a GitHub repository (open, merged
and declined) and writes one CSV row per pull request.

The token is read from --token, github.token in the config file,
CUALITY_GITHUB_TOKEN or GITHUB_TOKEN. If any page fails to load, no CSV is
written.`,
	Example: `  cuality pulls octo-org/octo-repo
  cuality pulls octo-org/octo-repo --api-url https://ghe.example.com/api/v3`,
	Args: cobra.ExactArgs(1),
	RunE: runPulls,
}

func init() {
	pullsCmd.Flags().StringVar(&pullsFlagToken, "token", "", "GitHub API token")
	pullsCmd.Flags().StringVarP(&pullsFlagOutput, "output", "o", "", "CSV destination (default from config: pull_requests.csv)")
	pullsCmd.Flags().StringVar(&pullsFlagAPIURL, "api-url", "", "API root for GitHub Enterprise")
	pullsCmd.Flags().IntVar(&pullsFlagPerPage, "per-page", 0, "Page size (default from config: 100)")
	rootCmd.AddCommand(pullsCmd)
}

func runPulls(cmd *cobra.Command, args []string) error {
	owner, name, err := pulls.SplitRepo(args[0])
	if err != nil {
		return err
	}

	token := cfg.GitHub.Token
	if pullsFlagToken != "" {
		token = pullsFlagToken
	}
	if token == "" {
		return errors.New("missing GitHub token: pass --token or set GITHUB_TOKEN")
	}
	apiURL := cfg.GitHub.APIURL
	if pullsFlagAPIURL != "" {
		apiURL = pullsFlagAPIURL
	}
	perPage := cfg.GitHub.PerPage
	if pullsFlagPerPage > 0 {
		perPage = pullsFlagPerPage
	}
	dest := cfg.GitHub.Output
	if pullsFlagOutput != "" {
		dest = pullsFlagOutput
	}

	client, err := pulls.NewClient(pulls.ClientOptions{
		Token:     token,
		BaseURL:   apiURL,
		RateLimit: cfg.GitHub.RateLimit,
	})
	if err != nil {
		return err
	}

	cur := pulls.NewCursor(client, owner, name, perPage, logger)
	n, err := pulls.Export(cmd.Context(), cur, dest)
	if err != nil {
		return fmt.Errorf("exporting pull requests of %s/%s: %w", owner, name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), " Exported %s pull requests to %s\n",
		output.StyleBold.Render(fmt.Sprint(n)), dest)
	return nil
}
