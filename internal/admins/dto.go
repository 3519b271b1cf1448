package admins

// CreateRequest is the payload of POST /admins.
type CreateRequest struct {
	Name string `json:"name" validate:"required"`
}

// NameRequest is the payload of PUT /admins/{id}.
type NameRequest struct {
	Name *NameBody `json:"name" validate:"required"`
}

// NameBody is a structured name; middle may be empty.
type NameBody struct {
	First  string `json:"first" validate:"required"`
	Middle string `json:"middle"`
	Last   string `json:"last" validate:"required"`
}

// PermissionsRequest is the payload of PUT /admins/{id}/permissions.
type PermissionsRequest struct {
	Permissions map[string]any `json:"permissions" validate:"required"`
}

// GroupsRequest is the payload of PUT /admins/{id}/groups.
type GroupsRequest struct {
	Groups map[string]any `json:"groups" validate:"required"`
}

// LinkRequest is the payload of PUT /admins/{id}/user.
type LinkRequest struct {
	Username string `json:"username" validate:"required"`
}

// ListParams are the query parameters of GET /admins.
type ListParams struct {
	Fields string `validate:"omitempty,max=512"`
	Sort   string `validate:"omitempty,max=256"`
	Limit  int    `validate:"gte=1"`
	Page   int    `validate:"gte=1"`
}
