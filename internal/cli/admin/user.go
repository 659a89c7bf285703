package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/marca-labs/brandgov/internal/config"
	"github.com/marca-labs/brandgov/internal/database"
	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/repository"
	"github.com/marca-labs/brandgov/internal/service"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Create and list users for the governance workflow",
	}

	cmd.AddCommand(UserCreateCmd())
	cmd.AddCommand(UserListCmd())

	return cmd
}

func UserCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a new user",
		Long:  "Create a new user with the given email, role and password",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserCreate,
	}

	cmd.Flags().StringP("name", "n", "", "Full name of the user")
	cmd.Flags().StringP("role", "r", "creator", "Role (creator, approver_a or approver_b)")
	cmd.Flags().StringP("password", "w", "", "Password (at least 8 characters)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	email := args[0]
	fullName, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")
	password, _ := cmd.Flags().GetString("password")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, uuidGen)

	user, err := authSvc.CreateUser(ctx, service.CreateUserInput{
		Email:    email,
		FullName: fullName,
		Password: password,
		Role:     domain.Role(role),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         user.ID,
			"email":      user.Email,
			"full_name":  user.FullName,
			"role":       user.Role,
			"created_at": user.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("User created: %s (%s, role %s)\n", user.Email, user.ID, user.Role)
	}

	return nil
}

func UserListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Long:  "List all users in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runUserList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runUserList(outputFormat string) error {
	ctx := context.Background()

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, uuidGen)

	users, err := authSvc.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(users))
		for i, user := range users {
			data[i] = map[string]interface{}{
				"id":         user.ID,
				"email":      user.Email,
				"full_name":  user.FullName,
				"role":       user.Role,
				"is_active":  user.IsActive,
				"created_at": user.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(users) == 0 {
			fmt.Println("No users found")
			return nil
		}
		for _, user := range users {
			active := "active"
			if !user.IsActive {
				active = "inactive"
			}
			fmt.Printf("%s  %-30s %-12s %s\n", user.ID, user.Email, user.Role, active)
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, cfg, nil
}
