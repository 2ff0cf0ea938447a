package dto

type LoginRequest struct {
	WalletAddress string  `json:"wallet_address"`
	Nonce         string  `json:"nonce"`
	Signature     string  `json:"signature"`
	DisplayName   *string `json:"display_name,omitempty"`
}

type CreateListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       string  `json:"price"`
	ImageURL    *string `json:"image_url,omitempty"`
}
