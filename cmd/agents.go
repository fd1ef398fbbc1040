package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agent-relay/internal/agents"
	"github.com/ziadkadry99/agent-relay/internal/db"
	"github.com/ziadkadry99/agent-relay/internal/importers"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage the agents stored in the relay database",
	Long:  `Seed, list and maintain agents. The relay server reads agents from the same database on every webhook.`,
}

var agentsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or update agents from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsImport,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all agents",
	RunE:  runAgentsList,
}

var agentsContextCmd = &cobra.Command{
	Use:   "context <id>",
	Short: "Replace an agent's context data with the contents of a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsContext,
}

var agentsEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Activate an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAgentActive(cmd.Context(), args[0], true)
	},
}

var agentsDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Deactivate an agent without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAgentActive(cmd.Context(), args[0], false)
	},
}

var agentsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsRemove,
}

func init() {
	agentsContextCmd.Flags().String("csv", "", "CSV file to flatten into context data")
	agentsContextCmd.MarkFlagRequired("csv")

	agentsCmd.AddCommand(agentsImportCmd)
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsContextCmd)
	agentsCmd.AddCommand(agentsEnableCmd)
	agentsCmd.AddCommand(agentsDisableCmd)
	agentsCmd.AddCommand(agentsRemoveCmd)
	rootCmd.AddCommand(agentsCmd)
}

// openAgentStore opens the configured database and returns its agent store.
func openAgentStore() (*agents.Store, *db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return agents.NewStore(database), database, nil
}

func runAgentsImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	list, err := agents.LoadSeed(f)
	if err != nil {
		return err
	}

	store, database, err := openAgentStore()
	if err != nil {
		return err
	}
	defer database.Close()

	for _, a := range list {
		id, err := store.Save(cmd.Context(), a)
		if err != nil {
			return fmt.Errorf("saving agent %s: %w", a.Name, err)
		}
		fmt.Fprintf(os.Stderr, "Saved agent %s (%s)\n", a.Name, id)
	}
	fmt.Fprintf(os.Stderr, "Imported %d agent(s).\n", len(list))
	return nil
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	store, database, err := openAgentStore()
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing agents: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No agents configured. Use 'relay agents import <file.yaml>' to add one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE\tPLATFORMS\tTRIGGERS\tMODEL")
	for _, a := range list {
		var platforms []string
		for _, p := range a.Platforms() {
			platforms = append(platforms, string(p))
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\t%s\n",
			a.ID, a.Name, a.IsActive, strings.Join(platforms, ","), describeTriggers(a), a.ModelID)
	}
	return w.Flush()
}

func describeTriggers(a agents.Agent) string {
	var parts []string
	if a.RespondToAll {
		parts = append(parts, "all")
	}
	if a.RespondToMentions {
		parts = append(parts, "mentions")
	}
	if len(a.Keywords) > 0 {
		parts = append(parts, "keywords:"+strings.Join(a.Keywords, "|"))
	}
	if a.ChannelFilter != "" {
		parts = append(parts, "channel:"+a.ChannelFilter)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func runAgentsContext(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("csv")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	text, err := importers.CSVToContext(f)
	if err != nil {
		return fmt.Errorf("converting %s: %w", path, err)
	}

	store, database, err := openAgentStore()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.SetContextData(cmd.Context(), args[0], text); err != nil {
		return fmt.Errorf("updating agent %s: %w", args[0], err)
	}
	fmt.Fprintf(os.Stderr, "Stored %d characters of context for agent %s\n", len(text), args[0])
	return nil
}

func setAgentActive(ctx context.Context, id string, active bool) error {
	store, database, err := openAgentStore()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("updating agent %s: %w", id, err)
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(os.Stderr, "Agent %s %s\n", id, state)
	return nil
}

func runAgentsRemove(cmd *cobra.Command, args []string) error {
	store, database, err := openAgentStore()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("removing agent %s: %w", args[0], err)
	}
	fmt.Fprintf(os.Stderr, "Removed agent %s\n", args[0])
	return nil
}
