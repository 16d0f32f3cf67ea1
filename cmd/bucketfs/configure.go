package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/clientcli"
	"github.com/sagarc03/bucketfs/transport"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage bucket profiles",
	Long: `Manage bucket profiles in the profile file.

Profiles save connection settings for several buckets and are selected with
--profile or BUCKETFS_PROFILE.

Profiles are stored in ~/.bucketfs/config.yaml unless --profiles is given.`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured profiles",
	Long: `List all profiles configured in the profile file.

The default profile is marked with an asterisk (*).`,
	RunE: runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a profile",
	Long: `Add a profile interactively.

You will be prompted for:
  - Endpoint host
  - Bucket name and calling format
  - Whether to use https
  - Access key and secret key
  - Whether to set as default

The bucket is listed with the new credentials before saving.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var configureSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigureSetDefault,
}

var configureShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile details",
	Long: `Show details for a profile.

If no name is provided, shows the default profile.
Secrets are hidden by default; use --show-secrets to reveal them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureShow,
}

var showSecrets bool

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureAddCmd)
	configureCmd.AddCommand(configureRemoveCmd)
	configureCmd.AddCommand(configureSetDefaultCmd)
	configureCmd.AddCommand(configureShowCmd)

	configureShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configureListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
}

// getConfigPath returns the profile file path from --profiles, BUCKETFS_PROFILES or the default.
func getConfigPath() string {
	if profilesPath != "" {
		return profilesPath
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

func runConfigureList(_ *cobra.Command, _ []string) error {
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("No profiles configured.")
			fmt.Println("Run 'bucketfs configure add <name>' to create one.")
			return nil
		}
		return fmt.Errorf("load config: %w", err)
	}

	if len(cfg.Profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("Run 'bucketfs configure add <name>' to create one.")
		return nil
	}

	def, err := cfg.GetDefaultProfile()
	if err != nil {
		return err
	}

	return getFormatter().FormatProfileList(os.Stdout, cfg.Profiles, def.Name, showSecrets)
}

func runConfigureAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = &clientcli.ConfigFile{}
	case err != nil:
		return fmt.Errorf("load config: %w", err)
	}

	base := clientcli.Profile{Name: name, Endpoint: clientcli.DefaultEndpoint}
	existing, _ := cfg.GetProfile(name)
	if existing != nil {
		if !confirm(fmt.Sprintf("Profile '%s' already exists. Update it", name)) {
			fmt.Println("Cancelled.")
			return nil
		}
		base = *existing
	}

	profile, err := promptProfile(base)
	if err != nil {
		return handlePromptError(err)
	}

	// The first profile is always the default.
	makeDefault := len(cfg.Profiles) == 0 || profile.Default
	if !makeDefault {
		makeDefault = confirm("Set as default profile")
	}

	fmt.Print("Testing connection... ")
	if connErr := testBucketConnection(cmd.Context(), &profile); connErr != nil {
		fmt.Println("FAILED")
		fmt.Printf("Warning: could not list bucket %q: %v\n", profile.Bucket, connErr)
		if !confirm("Save profile anyway") {
			fmt.Println("Cancelled.")
			return nil
		}
	} else {
		fmt.Println("OK")
	}

	if existing != nil {
		err = cfg.UpdateProfile(profile)
	} else {
		err = cfg.AddProfile(profile)
	}
	if err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	if makeDefault {
		if err := cfg.SetDefault(name); err != nil {
			return err
		}
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	verb := "added"
	if existing != nil {
		verb = "updated"
	}
	fmt.Printf("Profile '%s' %s.\n", name, verb)
	if makeDefault {
		fmt.Println("Set as default profile.")
	}
	return nil
}

// promptProfile asks for every connection field, offering base's values as defaults.
// The secret is never echoed and an empty answer keeps the stored one.
func promptProfile(base clientcli.Profile) (clientcli.Profile, error) {
	p := base

	host, err := (&promptui.Prompt{
		Label:   "Endpoint host",
		Default: base.Endpoint,
		Validate: func(input string) error {
			switch {
			case input == "":
				return errors.New("endpoint host is required")
			case strings.Contains(input, "://"):
				return errors.New("enter a host such as s3.amazonaws.com, without a scheme")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return p, err
	}
	p.Endpoint = strings.TrimSuffix(host, "/")

	if p.Bucket, err = (&promptui.Prompt{
		Label:   "Bucket",
		Default: base.Bucket,
		Validate: func(input string) error {
			if input == "" {
				return clientcli.ErrBucketRequired
			}
			return nil
		},
	}).Run(); err != nil {
		return p, err
	}

	formats := []string{
		bucketfs.SubdomainFormat.String(),
		bucketfs.PathFormat.String(),
		bucketfs.VanityFormat.String(),
	}
	if _, p.CallingFormat, err = (&promptui.Select{Label: "Calling format", Items: formats}).Run(); err != nil {
		return p, err
	}

	p.Secure = confirm("Use https")

	if p.AccessKey, err = (&promptui.Prompt{Label: "Access key", Default: base.AccessKey}).Run(); err != nil {
		return p, err
	}

	secretLabel := "Secret key"
	if base.SecretKey != "" {
		secretLabel = "Secret key (empty keeps current)"
	}
	secret, err := (&promptui.Prompt{Label: secretLabel, Mask: '*'}).Run()
	if err != nil {
		return p, err
	}
	if secret != "" {
		p.SecretKey = secret
	}

	return p, nil
}

// confirm runs a yes/no prompt. Anything but an explicit yes counts as no.
func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

func runConfigureRemove(_ *cobra.Command, args []string) error {
	name := args[0]
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err = cfg.GetProfile(name); err != nil {
		return err
	}

	if !confirm(fmt.Sprintf("Remove profile '%s'", name)) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := cfg.RemoveProfile(name); err != nil {
		return fmt.Errorf("remove profile: %w", err)
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Profile '%s' removed.\n", name)
	return nil
}

func runConfigureSetDefault(_ *cobra.Command, args []string) error {
	name := args[0]
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.SetDefault(name); err != nil {
		return err
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Default profile set to '%s'.\n", name)
	return nil
}

func runConfigureShow(_ *cobra.Command, args []string) error {
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	p, err := cfg.GetProfile(name)
	if err != nil {
		return err
	}

	def, err := cfg.GetDefaultProfile()
	if err != nil {
		return err
	}

	return getFormatter().FormatProfileShow(os.Stdout, *p, def.Name == p.Name, showSecrets)
}

// testBucketConnection lists at most one key with the profile's credentials.
func testBucketConnection(ctx context.Context, p *clientcli.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tc, err := clientcli.ConfigFromProfile(p).Transport(os.Getenv)
	if err != nil {
		return err
	}
	tr, err := transport.New(tc, transport.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}

	_, err = tr.ListBucket(ctx, bucketfs.ListQuery{MaxKeys: 1})
	return err
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
