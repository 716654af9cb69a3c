package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vibast-solutions/ms-go-course/app/repository"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/types"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateReq types.CreateAdminRequest

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the administrator account",
	Long:  `Create the single administrator account. Fails when an administrator already exists.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, db, err := loadRuntime()
		if err != nil {
			return err
		}
		defer db.Close()

		if adminCreateReq.Password == "" {
			adminCreateReq.Password = promptLine("Password: ")
		}
		if err = adminCreateReq.Validate(); err != nil {
			return err
		}

		adminService := service.NewAdminService(repository.NewUserRepository(db), cfg)
		user, err := adminService.CreateAdmin(context.Background(), &adminCreateReq)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrAdminExists):
				return errors.New("an administrator already exists, refusing to create another")
			case errors.Is(err, service.ErrUserExists):
				return fmt.Errorf("email %q is already registered", adminCreateReq.Email)
			}
			return err
		}

		fmt.Printf("admin_id: %d\n", user.ID)
		fmt.Printf("email: %s\n", user.Email)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminCreateReq.Email, "email", "", "administrator email")
	adminCreateCmd.Flags().StringVar(&adminCreateReq.Password, "password", "", "administrator password (prompted when empty)")
	adminCreateCmd.Flags().StringVar(&adminCreateReq.FirstName, "first-name", "Admin", "administrator first name")
	adminCreateCmd.Flags().StringVar(&adminCreateReq.LastName, "last-name", "", "administrator last name")
	_ = adminCreateCmd.MarkFlagRequired("email")

	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}

func promptLine(label string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
