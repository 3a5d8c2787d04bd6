package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"civic-vote/blockchain/ledger"
	"civic-vote/config"
	"civic-vote/models"
	"civic-vote/storage"
)

var auditCmd = &cobra.Command{
	Use:   "audit [export file]",
	Short: "Validate a ledger export offline",
	Long: `audit recomputes every block hash and link of a ledger export. Without
an argument it checks the newest export in the configured archive directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

var auditDir string

func init() {
	auditCmd.Flags().StringVar(&auditDir, "archive-dir", "", "archive directory to read the newest export from (default archive_dir)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	path, export, err := loadExport(args)
	if err != nil {
		return err
	}

	algorithm, err := ledger.ParseAlgorithm(export.Algorithm)
	if err != nil {
		return err
	}
	return printExport(path, export, ledger.ValidateBlocks(algorithm, export.Blocks))
}

func loadExport(args []string) (string, *models.ChainExport, error) {
	if len(args) == 1 {
		export, err := storage.ReadChainExport(args[0])
		return args[0], export, err
	}

	dir := auditDir
	if dir == "" {
		dir = viper.GetString(config.KeyArchiveDir)
	}
	if dir == "" {
		return "", nil, errors.New("no export file given and no archive directory configured")
	}

	archive, err := storage.NewChainArchive(dir, storage.DefaultArchiveKeep)
	if err != nil {
		return "", nil, err
	}
	export, err := archive.Latest()
	return archive.Dir(), export, err
}
