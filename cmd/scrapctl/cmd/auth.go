package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raj-venom/scrap-dai-client/internal/api"
	"github.com/Raj-venom/scrap-dai-client/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session on this device",
	Long: `Log in as a seller (user) or a collector.

The password is read from --password, then SCRAPDAI_PASSWORD, then stdin.

Examples:
  scrapctl login --role user --email sita@example.com
  SCRAPDAI_PASSWORD=... scrapctl login --role collector --email ram@example.com`,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a seller account",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget stored credentials",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	RunE:  runWhoami,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect the stored session",
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show role, token presence and access token expiry",
	RunE:  runSessionStatus,
}

func init() {
	loginCmd.Flags().String("role", string(session.RoleUser), "account role (user, collector)")
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")

	registerCmd.Flags().String("name", "", "full name")
	registerCmd.Flags().String("email", "", "email")
	registerCmd.Flags().String("phone", "", "phone number")
	registerCmd.Flags().String("password", "", "password (min 8 characters)")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("email")

	sessionCmd.AddCommand(sessionStatusCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(sessionCmd)
}

func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	if p := os.Getenv("SCRAPDAI_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	roleName, _ := cmd.Flags().GetString("role")
	role, err := session.ParseRole(roleName)
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.client.Auth.Login(context.Background(), role, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	if ok, err := printStructured(user); ok {
		return err
	}
	fmt.Printf("%s Logged in as %s (%s)\n", colorGreen("✓"), user.FullName, role)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.client.Auth.Register(context.Background(), api.RegisterRequest{
		FullName: name,
		Email:    email,
		Phone:    phone,
		Password: password,
	})
	if err != nil {
		return err
	}

	if ok, err := printStructured(user); ok {
		return err
	}
	fmt.Printf("%s Account created for %s. Run 'scrapctl login' to continue.\n", colorGreen("✓"), user.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.Auth.Logout(context.Background()); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]string{"status": "logged_out"})
	}
	fmt.Printf("%s Logged out\n", colorGreen("✓"))
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.client.Auth.CurrentUser(context.Background())
	if err != nil {
		return err
	}
	if ok, err := printStructured(user); ok {
		return err
	}

	w := newTable()
	fmt.Fprintf(w, "ID:\t%s\n", user.ID)
	fmt.Fprintf(w, "Name:\t%s\n", user.FullName)
	fmt.Fprintf(w, "Email:\t%s\n", user.Email)
	if user.Phone != "" {
		fmt.Fprintf(w, "Phone:\t%s\n", user.Phone)
	}
	if user.Role != "" {
		fmt.Fprintf(w, "Role:\t%s\n", user.Role)
	}
	return w.Flush()
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.session.Status(context.Background())
	if err != nil {
		return err
	}
	if ok, err := printStructured(st); ok {
		return err
	}

	if !st.HasAccessToken {
		fmt.Println("Not logged in")
		return nil
	}
	w := newTable()
	fmt.Fprintf(w, "Role:\t%s\n", st.Role)
	fmt.Fprintf(w, "Refresh token:\t%s\n", yesNo(st.HasRefreshToken))
	switch {
	case st.AccessExpiresAt.IsZero():
		fmt.Fprintf(w, "Access token:\tpresent (expiry unknown)\n")
	case st.AccessExpired:
		fmt.Fprintf(w, "Access token:\t%s\n", colorYellow("expired "+st.AccessExpiresAt.Local().Format(time.RFC1123)))
	default:
		fmt.Fprintf(w, "Access token:\tvalid until %s\n", st.AccessExpiresAt.Local().Format(time.RFC1123))
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
