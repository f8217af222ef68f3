// Package policy decides whether an actor may perform an action on a resource.
// It has no I/O; callers load the actor and, for supplier-owned resources, the owner first.
package policy

type Resource string

const (
	Categories      Resource = "categories"
	Products        Resource = "products"
	Parameters      Resource = "parameters"
	Listings        Resource = "listings"
	ParameterValues Resource = "parameter_values"
	Carts           Resource = "carts"
	CartLines       Resource = "cart_lines"
	Users           Resource = "users"
	Customers       Resource = "customers"
	Suppliers       Resource = "suppliers"
	Imports         Resource = "imports"
)

type Action string

const (
	List          Action = "list"
	Retrieve      Action = "retrieve"
	Create        Action = "create"
	Update        Action = "update"
	PartialUpdate Action = "partial_update"
	Destroy       Action = "destroy"
)

func (a Action) ReadOnly() bool {
	return a == List || a == Retrieve
}

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) Allowed() bool { return d == Allow }

// Actor is the requester. A nil *Actor is anonymous.
type Actor struct {
	UserID     string
	IsStaff    bool
	SupplierID uint // 0 unless the user is a supplier
	CustomerID uint // 0 unless the user is a customer
}

func (a *Actor) IsSupplier() bool { return a != nil && a.SupplierID != 0 }
func (a *Actor) IsCustomer() bool { return a != nil && a.CustomerID != 0 }

// Ownership describes the target object for object-level actions. OwnerSupplierID is the
// supplier owning the listing (or the listing a parameter value belongs to).
type Ownership struct {
	OwnerSupplierID uint
}

func sharedCatalog(r Resource) bool {
	return r == Categories || r == Products || r == Parameters
}

func supplierOwned(r Resource) bool {
	return r == Listings || r == ParameterValues
}

// Decide evaluates the catalog rule set:
// staff may do anything; suppliers may do anything on the shared catalog and act on
// supplier-owned rows they own; everyone else is read-only.
func Decide(actor *Actor, res Resource, act Action, own *Ownership) Decision {
	if actor != nil && actor.IsStaff {
		return Allow
	}

	if actor.IsSupplier() {
		switch {
		case sharedCatalog(res):
			return Allow
		case supplierOwned(res):
			if act.ReadOnly() {
				return Allow
			}
			if act == Create && res == Listings {
				return Allow
			}
			// updates, destroys and parameter values on a listing need ownership
			if own != nil && own.OwnerSupplierID == actor.SupplierID {
				return Allow
			}
			return Deny
		}
	}

	if (sharedCatalog(res) || supplierOwned(res)) && act.ReadOnly() {
		return Allow
	}
	return Deny
}

// CanAccessCart reports whether actor may read or mutate a cart owned by customerID.
func CanAccessCart(actor *Actor, customerID uint) bool {
	if actor == nil {
		return false
	}
	return actor.IsStaff || (actor.CustomerID != 0 && actor.CustomerID == customerID)
}

// CanAccessUser reports whether actor may retrieve, update or delete the user with userID.
func CanAccessUser(actor *Actor, userID string) bool {
	if actor == nil {
		return false
	}
	return actor.IsStaff || actor.UserID == userID
}

// CanManageProfiles gates the customer and supplier profile endpoints.
func CanManageProfiles(actor *Actor) bool {
	return actor != nil && actor.IsStaff
}

// CanImport reports whether actor may upload a catalog for the supplier shopID.
func CanImport(actor *Actor, shopID uint) bool {
	if actor == nil {
		return false
	}
	return actor.IsStaff || (actor.SupplierID != 0 && actor.SupplierID == shopID)
}
