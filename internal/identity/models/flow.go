package models

// Selector names the principal attribute a login flow resolves by.
type Selector string

const (
	SelectorContact    Selector = "contact"
	SelectorUsername   Selector = "username"
	SelectorNationalID Selector = "national_id"
)

// FlowName identifies one of the five login flows.
type FlowName string

const (
	// FlowRegistrant is the self-service taxpayer login by contact address.
	FlowRegistrant FlowName = "registrant"
	// FlowMonitoring is the monitoring-staff username login.
	FlowMonitoring FlowName = "monitoring"
	// FlowGhanaCard is the configuration login by Ghana Card number.
	FlowGhanaCard FlowName = "ghanacard"
	// FlowAdmin is the unified GRA staff login.
	FlowAdmin FlowName = "admin"
	// FlowPasswordSet verifies contact-address possession before a password
	// is (re)set. It never promotes to an authenticated session.
	FlowPasswordSet FlowName = "password_set"
)

// Flow is one row of the static flow table: which attribute it resolves
// principals by, which roles may use it, whether a password check precedes
// the OTP, and whether verification mints a durable bearer token.
type Flow struct {
	Name         FlowName
	Selector     Selector
	Roles        []Role
	PasswordStep bool
	IssuesToken  bool
}

// Permits reports whether role may use this flow.
func (f Flow) Permits(role Role) bool {
	for _, r := range f.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var flows = map[FlowName]Flow{
	FlowRegistrant: {
		Name:     FlowRegistrant,
		Selector: SelectorContact,
		Roles:    []Role{RoleResident, RoleNonResident},
	},
	FlowMonitoring: {
		Name:         FlowMonitoring,
		Selector:     SelectorUsername,
		Roles:        []Role{RoleMonitoring, RoleAdmin},
		PasswordStep: true,
		IssuesToken:  true,
	},
	FlowGhanaCard: {
		Name:        FlowGhanaCard,
		Selector:    SelectorNationalID,
		Roles:       []Role{RoleGRAMaker, RoleGRAChecker, RoleAdmin},
		IssuesToken: true,
	},
	FlowAdmin: {
		Name:         FlowAdmin,
		Selector:     SelectorUsername,
		Roles:        []Role{RoleGRAMaker, RoleGRAChecker, RoleMonitoring, RoleAdmin},
		PasswordStep: true,
		IssuesToken:  true,
	},
	FlowPasswordSet: {
		Name:     FlowPasswordSet,
		Selector: SelectorContact,
		Roles: []Role{
			RoleResident, RoleNonResident, RoleGRAMaker,
			RoleGRAChecker, RoleMonitoring, RoleAdmin,
		},
	},
}

// FlowByName looks up a flow in the static table.
func FlowByName(name FlowName) (Flow, bool) {
	f, ok := flows[name]
	return f, ok
}
