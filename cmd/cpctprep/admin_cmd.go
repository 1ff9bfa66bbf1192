package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/cpctprep/internal/api"
	"github.com/verte-zerg/cpctprep/internal/config"
	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/store"
)

const minPasswordLen = 8

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage API administrators",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE:  runAdminCreateCmd,
	}
	create.Flags().String("username", "", "admin username")
	create.Flags().Bool("password-stdin", false, "read the password from stdin")
	create.Flags().String("backend", "", "storage backend: sqlite or mongo (overrides config)")
	cmd.AddCommand(create)
	return cmd
}

func runAdminCreateCmd(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("--username is required")
	}
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	password, err := readPassword(cmd, fromStdin)
	if err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := api.HashPassword(password)
	if err != nil {
		return err
	}

	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideServerConfig(cmd, &fileCfg)
	srvCfg, err := config.ResolveServerConfig(fileCfg, config.DefaultDotEnvPath())
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openBackend(ctx, srvCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}()

	admin, err := st.CreateAdmin(ctx, model.Admin{Username: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("admin %q already exists", username)
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", admin.Username, admin.ID)
	return err
}

func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; use --password-stdin")
	}
	if _, err := fmt.Fprint(cmd.ErrOrStderr(), "Password: "); err != nil {
		return "", err
	}
	raw, err := term.ReadPassword(fd)
	if _, perr := fmt.Fprintln(cmd.ErrOrStderr()); perr != nil {
		return "", perr
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}
