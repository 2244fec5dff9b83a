package authz

import (
	"fmt"
	"strings"
)

const (
	// RoleIntake 外部产品：只能上报用户与支付
	RoleIntake = "intake"
	// RoleAdmin 运营后台：全部路由
	RoleAdmin = "admin"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleIntake,
			Policies: []Policy{
				{Object: "/sync/unified-data", Action: "POST"},
			},
		},
		{
			Role:     RoleAdmin,
			Inherits: []string{RoleIntake},
			Policies: []Policy{
				{Object: "/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

// BootstrapCallers 按配置覆盖调用方角色；同时出现在两个列表中的调用方拥有两种角色
// 配置中已移除的调用方会被清空角色
func (s *Service) BootstrapCallers(intakeCallers, adminCallers []string) error {
	existing, err := s.ListCallers()
	if err != nil {
		return err
	}

	roles := make(map[string][]string)
	order := make([]string, 0, len(intakeCallers)+len(adminCallers))
	assign := func(callers []string, role string) {
		for _, caller := range callers {
			caller = strings.TrimSpace(caller)
			if caller == "" {
				continue
			}
			if _, ok := roles[caller]; !ok {
				order = append(order, caller)
			}
			roles[caller] = append(roles[caller], role)
		}
	}
	assign(intakeCallers, RoleIntake)
	assign(adminCallers, RoleAdmin)

	for _, caller := range existing {
		if _, ok := roles[caller]; ok {
			continue
		}
		if err := s.SetCallerRoles(caller, nil); err != nil {
			return err
		}
	}
	for _, caller := range order {
		if err := s.SetCallerRoles(caller, roles[caller]); err != nil {
			return err
		}
	}
	return nil
}
