package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Money and meter values are stored as TEXT holding the decimal string so
// they round-trip exactly. Dates are TEXT in YYYY-MM-DD form. Foreign keys
// use NO ACTION: cascades are explicit deletes issued by the caller.

var (
	// BuildingsColumns holds the columns for the "buildings" table.
	BuildingsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "name", Type: field.TypeString, Size: 100},
		{Name: "address", Type: field.TypeString, Size: 255},
	}
	// BuildingsTable holds the schema information for the "buildings" table.
	BuildingsTable = &schema.Table{
		Name:       "buildings",
		Columns:    BuildingsColumns,
		PrimaryKey: []*schema.Column{BuildingsColumns[0]},
	}

	// RoomsColumns holds the columns for the "rooms" table.
	RoomsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "room_number", Type: field.TypeString, Size: 20},
		{Name: "area", Type: field.TypeFloat64},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"Vacant", "Occupied", "Maintenance"}, Default: "Vacant"},
		{Name: "last_water_reading", Type: field.TypeString, Size: 32, Default: "0"},
		{Name: "last_elec_reading", Type: field.TypeString, Size: 32, Default: "0"},
		{Name: "building_id", Type: field.TypeInt},
	}
	// RoomsTable holds the schema information for the "rooms" table.
	RoomsTable = &schema.Table{
		Name:       "rooms",
		Columns:    RoomsColumns,
		PrimaryKey: []*schema.Column{RoomsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "rooms_buildings_rooms",
				Columns:    []*schema.Column{RoomsColumns[6]},
				RefColumns: []*schema.Column{BuildingsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "room_building_id_room_number",
				Unique:  true,
				Columns: []*schema.Column{RoomsColumns[6], RoomsColumns[1]},
			},
		},
	}

	// TenantsColumns holds the columns for the "tenants" table.
	TenantsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "name", Type: field.TypeString, Size: 100},
		{Name: "phone", Type: field.TypeString, Size: 20},
	}
	// TenantsTable holds the schema information for the "tenants" table.
	TenantsTable = &schema.Table{
		Name:       "tenants",
		Columns:    TenantsColumns,
		PrimaryKey: []*schema.Column{TenantsColumns[0]},
	}

	// LeasesColumns holds the columns for the "leases" table.
	LeasesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "start_date", Type: field.TypeString, Size: 10},
		{Name: "end_date", Type: field.TypeString, Size: 10},
		{Name: "rent_amount", Type: field.TypeString, Size: 32},
		{Name: "deposit", Type: field.TypeString, Size: 32},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"Active", "Terminated"}, Default: "Active"},
		{Name: "room_id", Type: field.TypeInt},
		{Name: "tenant_id", Type: field.TypeInt},
	}
	// LeasesTable holds the schema information for the "leases" table.
	LeasesTable = &schema.Table{
		Name:       "leases",
		Columns:    LeasesColumns,
		PrimaryKey: []*schema.Column{LeasesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "leases_rooms_leases",
				Columns:    []*schema.Column{LeasesColumns[6]},
				RefColumns: []*schema.Column{RoomsColumns[0]},
				OnDelete:   schema.NoAction,
			},
			{
				Symbol:     "leases_tenants_leases",
				Columns:    []*schema.Column{LeasesColumns[7]},
				RefColumns: []*schema.Column{TenantsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "lease_tenant_id_status",
				Columns: []*schema.Column{LeasesColumns[7], LeasesColumns[5]},
			},
			{
				Name:    "lease_room_id_status",
				Columns: []*schema.Column{LeasesColumns[6], LeasesColumns[5]},
			},
		},
	}

	// BillsColumns holds the columns for the "bills" table.
	BillsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "period", Type: field.TypeString, Size: 7},
		{Name: "rent_fee", Type: field.TypeString, Size: 32},
		{Name: "water_fee", Type: field.TypeString, Size: 32, Default: "0"},
		{Name: "elec_fee", Type: field.TypeString, Size: 32, Default: "0"},
		{Name: "total_amount", Type: field.TypeString, Size: 32},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"Pending", "Paid"}, Default: "Pending"},
		{Name: "due_date", Type: field.TypeString, Size: 10},
		{Name: "lease_id", Type: field.TypeInt},
	}
	// BillsTable holds the schema information for the "bills" table.
	BillsTable = &schema.Table{
		Name:       "bills",
		Columns:    BillsColumns,
		PrimaryKey: []*schema.Column{BillsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "bills_leases_bills",
				Columns:    []*schema.Column{BillsColumns[8]},
				RefColumns: []*schema.Column{LeasesColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "bill_lease_id_period",
				Unique:  true,
				Columns: []*schema.Column{BillsColumns[8], BillsColumns[1]},
			},
		},
	}

	// Tables holds all the tables in the billing schema.
	Tables = []*schema.Table{
		BuildingsTable,
		RoomsTable,
		TenantsTable,
		LeasesTable,
		BillsTable,
	}
)

func init() {
	RoomsTable.ForeignKeys[0].RefTable = BuildingsTable
	LeasesTable.ForeignKeys[0].RefTable = RoomsTable
	LeasesTable.ForeignKeys[1].RefTable = TenantsTable
	BillsTable.ForeignKeys[0].RefTable = LeasesTable
}
