package dto

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=200"`
	Admin    bool   `json:"admin"`
}

func (r CreateUserRequest) Validate() map[string]string {
	return Validate(r)
}

type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	// Slug is generated from Name when empty.
	Slug       string `json:"slug" validate:"omitempty,max=100"`
	Logo       string `json:"logo" validate:"omitempty,url"`
	OwnerID    string `json:"ownerId" validate:"omitempty,uuid"`
	OwnerEmail string `json:"ownerEmail" validate:"omitempty,email"`
}

func (r CreateOrganizationRequest) Validate() map[string]string {
	return Validate(r)
}

type AddMemberRequest struct {
	UserID string `json:"userId" validate:"omitempty,uuid"`
	Email  string `json:"email" validate:"omitempty,email"`
	Role   string `json:"role" validate:"required,oneof=owner admin member"`
}

// Validate requires the new member to be named by userId or email.
func (r AddMemberRequest) Validate() map[string]string {
	errs := Validate(r)
	if r.UserID == "" && r.Email == "" {
		errs["userId"] = "userId or email is required"
	}
	return errs
}
