package models

import "testing"

func TestRolePrivileged(t *testing.T) {
	cases := []struct {
		role Role
		want bool
	}{
		{RoleStudent, false},
		{RoleTeacher, true},
		{RoleAdmin, true},
		{Role("moderator"), false},
		{Role(""), false},
	}
	for _, tc := range cases {
		if got := tc.role.Privileged(); got != tc.want {
			t.Errorf("Role(%q).Privileged() = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleStudent, RoleTeacher, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("Role(%q).Valid() = false", r)
		}
	}
	for _, r := range []Role{"", "moderator", "ADMIN"} {
		if r.Valid() {
			t.Errorf("Role(%q).Valid() = true", r)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range []Category{CategoryNews, CategoryMaterials, CategoryProjectIdeas} {
		if !c.Valid() {
			t.Errorf("Category(%q).Valid() = false", c)
		}
	}
	for _, c := range []Category{"", "misc", "News"} {
		if c.Valid() {
			t.Errorf("Category(%q).Valid() = true", c)
		}
	}
}
