package httpapi

import (
	"context"
	"fmt"

	"smart-sales-forecast/internal/application/auth"
	authDomain "smart-sales-forecast/internal/domain/auth"
)

// seedAuth 將預設角色、權限與帳號寫入儲存層（若支援）。
func seedAuth(ctx context.Context, repo auth.UserRepository) error {
	ar, ok := repo.(interface {
		SeedDefaults(ctx context.Context) error
		SeedPermissions(ctx context.Context, perms []string, rolePerms map[authDomain.Role][]string) error
	})
	if !ok {
		return fmt.Errorf("auth repository does not support seeding")
	}

	// 建立基本帳號與角色
	if err := ar.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}

	// 建立權限與映射
	allPerms := []string{
		string(auth.PermUserManage),
		string(auth.PermSystemHealth),
		string(auth.PermDatasetUpload),
		string(auth.PermForecastRun),
		string(auth.PermReportsView),
	}
	if err := ar.SeedPermissions(ctx, allPerms, auth.RolePermissionsAsStrings()); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}

	return nil
}
