// Package crm declares the list pages of the CRM and the services that own
// their collections.
package crm

import (
	"strings"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

// Service names a backend microservice.
type Service string

const (
	UserManagement     Service = "user-management"
	Account            Service = "account"
	Sales              Service = "sales"
	ActivityManagement Service = "activity-management"
	MarketingStructure Service = "marketing-structure"
	Analytics          Service = "analytics"
)

// Page binds a list schema to the service path that serves its collection.
// ViewScope names the saved view set of the page, e.g. "employee" stores
// under "employeeViews".
type Page struct {
	Schema    *listview.Schema
	Service   Service
	Path      string
	ViewScope string
}

const (
	statusActive   = "ACTIVE"
	statusInactive = "INACTIVE"
)

func activeFilters() []listview.QuickFilter {
	return []listview.QuickFilter{
		{Name: "active_only", Label: "Active", Match: listview.FieldEquals("status", statusActive)},
		{Name: "inactive_only", Label: "Inactive", Match: listview.FieldEquals("status", statusInactive)},
	}
}

// Employees lists staff accounts from the user management service.
func Employees() Page {
	return Page{
		Service:   UserManagement,
		Path:      "/api/v1/employees",
		ViewScope: "employee",
		Schema: &listview.Schema{
			Entity:  "employees",
			IDField: "id",
			Columns: []listview.Column{
				{Key: "fullName", Label: "Full Name", Value: listview.Concat(" ", "firstName", "lastName")},
				{Key: "email", Label: "Email"},
				{Key: "phone", Label: "Phone"},
				{Key: "role", Label: "Role"},
				{Key: "department", Label: "Department"},
				{Key: "status", Label: "Status"},
				{Key: "createdAt", Label: "Created"},
			},
			SearchFields:   []string{"fullName", "email", "phone"},
			QuickFilters:   activeFilters(),
			DefaultSort:    listview.SortSpec{Key: "fullName", Direction: listview.Asc},
			DefaultColumns: []string{"fullName", "email", "role", "status"},
		},
	}
}

// Contacts lists customer and lead contacts from the account service.
func Contacts() Page {
	return Page{
		Service:   Account,
		Path:      "/api/v1/contacts",
		ViewScope: "contact",
		Schema: &listview.Schema{
			Entity:  "contacts",
			IDField: "id",
			Columns: []listview.Column{
				{Key: "fullName", Label: "Name", Value: listview.Concat(" ", "firstName", "lastName")},
				{Key: "email", Label: "Email"},
				{Key: "phone", Label: "Phone"},
				{Key: "company", Label: "Company"},
				{Key: "location", Label: "Location", Value: listview.Concat(", ", "city", "state", "country")},
				{Key: "type", Label: "Type"},
				{Key: "owner", Label: "Owner"},
				{Key: "createdAt", Label: "Created"},
			},
			SearchFields: []string{"fullName", "email", "company", "location"},
			QuickFilters: []listview.QuickFilter{
				{Name: "customers", Label: "Customers", Match: listview.FieldEquals("type", "CUSTOMER")},
				{Name: "leads", Label: "Leads", Match: listview.FieldEquals("type", "LEAD")},
			},
			DefaultSort:    listview.SortSpec{Key: "createdAt", Direction: listview.Desc},
			DefaultColumns: []string{"fullName", "email", "company", "type"},
		},
	}
}

// Roles lists access management roles.
func Roles() Page {
	return Page{
		Service:   UserManagement,
		Path:      "/api/v1/roles",
		ViewScope: "role",
		Schema: &listview.Schema{
			Entity:  "roles",
			IDField: "id",
			Columns: []listview.Column{
				{Key: "name", Label: "Role"},
				{Key: "description", Label: "Description"},
				{Key: "userCount", Label: "Users"},
				{Key: "system", Label: "System"},
				{Key: "status", Label: "Status"},
			},
			SearchFields: []string{"name", "description"},
			QuickFilters: append(activeFilters(),
				listview.QuickFilter{Name: "system", Label: "System roles", Match: listview.FieldTrue("system")},
				listview.QuickFilter{Name: "custom", Label: "Custom roles", Match: listview.Not(listview.FieldTrue("system"))},
			),
			DefaultSort: listview.SortSpec{Key: "name", Direction: listview.Asc},
		},
	}
}

// Categories lists product categories from the sales service.
func Categories() Page {
	return Page{
		Service:   Sales,
		Path:      "/api/v1/product-categories",
		ViewScope: "category",
		Schema: &listview.Schema{
			Entity:  "categories",
			IDField: "id",
			Columns: []listview.Column{
				{Key: "code", Label: "Code"},
				{Key: "name", Label: "Name"},
				{Key: "parentName", Label: "Parent"},
				{Key: "productCount", Label: "Products"},
				{Key: "active", Label: "Active"},
			},
			SearchFields: []string{"code", "name", "parentName"},
			QuickFilters: []listview.QuickFilter{
				{Name: "active_only", Label: "Active", Match: listview.FieldTrue("active")},
				{Name: "inactive_only", Label: "Inactive", Match: listview.Not(listview.FieldTrue("active"))},
				{Name: "top_level", Label: "Top level", Match: func(row listview.Row) bool {
					return strings.TrimSpace(listview.Stringify(row["parentName"])) == ""
				}},
			},
			DefaultSort:     listview.SortSpec{Key: "name", Direction: listview.Asc},
			DefaultPageSize: 25,
		},
	}
}

// Teams lists marketing teams from the marketing structure service.
func Teams() Page {
	return Page{
		Service:   MarketingStructure,
		Path:      "/api/v1/teams",
		ViewScope: "team",
		Schema: &listview.Schema{
			Entity:  "teams",
			IDField: "id",
			Columns: []listview.Column{
				{Key: "name", Label: "Team"},
				{Key: "leader", Label: "Leader", Value: listview.Concat(" ", "leaderFirstName", "leaderLastName")},
				{Key: "region", Label: "Region"},
				{Key: "memberCount", Label: "Members"},
				{Key: "status", Label: "Status"},
			},
			SearchFields: []string{"name", "leader", "region"},
			QuickFilters: activeFilters(),
			DefaultSort:  listview.SortSpec{Key: "name", Direction: listview.Asc},
		},
	}
}

// LiveChat lists live chat widget configurations.
func LiveChat() Page {
	return Page{
		Service:   ActivityManagement,
		Path:      "/api/v1/livechat-configs",
		ViewScope: "livechat",
		Schema: &listview.Schema{
			Entity:  "livechat",
			IDField: "id",
			Columns: []listview.Column{
				{Key: "name", Label: "Name"},
				{Key: "channel", Label: "Channel"},
				{Key: "greeting", Label: "Greeting"},
				{Key: "assignedTeam", Label: "Team"},
				{Key: "enabled", Label: "Enabled"},
				{Key: "updatedAt", Label: "Updated"},
			},
			SearchFields: []string{"name", "channel", "assignedTeam"},
			QuickFilters: []listview.QuickFilter{
				{Name: "enabled", Label: "Enabled", Match: listview.FieldTrue("enabled")},
				{Name: "disabled", Label: "Disabled", Match: listview.Not(listview.FieldTrue("enabled"))},
			},
			DefaultSort:    listview.SortSpec{Key: "updatedAt", Direction: listview.Desc},
			DefaultColumns: []string{"name", "channel", "assignedTeam", "enabled"},
		},
	}
}

// Reports lists saved analytics reports.
func Reports() Page {
	return Page{
		Service:   Analytics,
		Path:      "/api/v1/reports",
		ViewScope: "report",
		Schema: &listview.Schema{
			Entity:  "reports",
			IDField: "id",
			Columns: []listview.Column{
				{Key: "title", Label: "Title"},
				{Key: "type", Label: "Type"},
				{Key: "owner", Label: "Owner"},
				{Key: "schedule", Label: "Schedule"},
				{Key: "lastRunAt", Label: "Last run"},
			},
			SearchFields: []string{"title", "owner"},
			QuickFilters: []listview.QuickFilter{
				{Name: "scheduled", Label: "Scheduled", Match: func(row listview.Row) bool {
					return strings.TrimSpace(listview.Stringify(row["schedule"])) != ""
				}},
			},
			DefaultSort: listview.SortSpec{Key: "lastRunAt", Direction: listview.Desc},
		},
	}
}

// Pages returns every list page of the CRM.
func Pages() []Page {
	return []Page{
		Employees(),
		Contacts(),
		Roles(),
		Categories(),
		Teams(),
		LiveChat(),
		Reports(),
	}
}
