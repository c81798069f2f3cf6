package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/moments/internal/client"
	"github.com/jon4hz/moments/internal/router"
	"github.com/spf13/cobra"
)

var loginCmdFlags struct {
	Username string
	Password string
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in and persist the session",
	Long:    `Authenticate against the moments backend and store the returned user in the session storage.`,
	Example: `moments login -u li -p secret1`,
	RunE:    login,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the persisted session",
	Run:   logout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginCmdFlags.Username, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginCmdFlags.Password, "password", "p", "", "Password")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func login(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, store, st := openSession(ctx)
	defer st.Close() //nolint:errcheck

	r := router.New(router.DefaultRoutes(router.PathsFromConfig(cfg.Routes)))
	c := client.New(cfg.API, store, r, cfg.Routes.Login, nil)

	user, err := c.Login(ctx, client.Credentials{
		Username: loginCmdFlags.Username,
		Password: loginCmdFlags.Password,
	})
	if err != nil {
		return err
	}
	if store.MirrorStale() {
		log.Warn("the session could not be persisted and is lost when this command exits")
	}

	fmt.Printf("logged in as %s (id %d)\n", user.Username, user.ID)
	if user.IsFirstLogin {
		fmt.Println("this is your first login, complete your profile in the web front end")
	}
	return nil
}

func logout(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	_, store, st := openSession(ctx)
	defer st.Close() //nolint:errcheck

	if !store.IsLoggedIn() {
		fmt.Println("not logged in")
		return
	}
	store.Clear(ctx)
	fmt.Println("logged out")
}
