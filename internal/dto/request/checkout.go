package request

type InitializeCheckoutRequest struct {
	CartID string `json:"cart_id" validate:"required,uuid4"`
}

type TravelerDetail struct {
	FirstName      string `json:"first_name" validate:"required,min=1,max=100"`
	LastName       string `json:"last_name" validate:"required,min=1,max=100"`
	DateOfBirth    string `json:"date_of_birth" validate:"required"`
	DocumentType   string `json:"document_type,omitempty" validate:"omitempty,oneof=passport id_card"`
	DocumentNumber string `json:"document_number,omitempty" validate:"omitempty,min=3,max=30"`
}

type SubmitTravelerDetailsRequest struct {
	Travelers    []TravelerDetail `json:"travelers" validate:"required,min=1,dive"`
	ContactEmail string           `json:"contact_email" validate:"required,email"`
	ContactPhone string           `json:"contact_phone" validate:"required,min=6,max=20"`
}
