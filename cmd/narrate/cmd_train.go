package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/narrative-engine/internal/content"
	"github.com/danielpatrickdp/narrative-engine/internal/store"
)

var ruleSetName string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train phrase models and store them with the rule set",
	Long: `Trains every configured corpus and saves the models and the merged
grammar to the database, so later runs can load content with --rule-set.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&ruleSetName, "name", "default", "name of the stored rule set")
}

func runTrain(cmd *cobra.Command, args []string) error {
	c, err := content.Load(cfg, logger)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, id := range c.Library.IDs() {
		m, _ := c.Library.Model(id)
		if err := st.SavePhraseModel(id, m); err != nil {
			return err
		}
		logger.Info("model stored", zap.String("corpus", id), zap.Strings("tags", m.Tags()))
	}
	setID, err := st.SaveRuleSet(ruleSetName, c.Rules)
	if err != nil {
		return err
	}

	fmt.Printf("stored %d models and rule set %q (%d rules, id %s) in %s\n",
		len(c.Library.IDs()), ruleSetName, c.Rules.Len(), setID, cfg.DB)
	return nil
}
