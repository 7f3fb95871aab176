package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

// Verification documents arrive inline as data URIs.
const maxBodyBytes = 12 << 20

var (
	validate     = newValidator()
	queryDecoder = newQueryDecoder()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type productRequest struct {
	Name          string           `json:"name" validate:"required"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	Category      string           `json:"category" validate:"required"`
	Brand         string           `json:"brand"`
	Condition     entity.Condition `json:"condition" validate:"required"`
	Stock         int              `json:"stock" validate:"gte=0"`
	Images        []string         `json:"images" validate:"omitempty,dive,required"`
	IsActive      *bool            `json:"is_active"`
}

type productPatchRequest struct {
	Name          *string           `json:"name" validate:"omitempty,min=1"`
	Description   *string           `json:"description"`
	Price         *decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal  `json:"original_price"`
	Category      *string           `json:"category" validate:"omitempty,min=1"`
	Brand         *string           `json:"brand"`
	Condition     *entity.Condition `json:"condition"`
	Stock         *int              `json:"stock" validate:"omitempty,gte=0"`
	Images        []string          `json:"images" validate:"omitempty,dive,required"`
	IsActive      *bool             `json:"is_active"`
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type createOrderRequest struct {
	ShippingAddress string               `json:"shipping_address" validate:"required"`
	PaymentMethod   entity.PaymentMethod `json:"payment_method" validate:"required,oneof=gcash paymaya bank_transfer credit_card debit_card"`
}

type paymentRequest struct {
	Method         entity.PaymentMethod `json:"method" validate:"omitempty,oneof=gcash paymaya bank_transfer credit_card debit_card"`
	Reference      string               `json:"reference"`
	IdempotencyKey string               `json:"idempotency_key"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type verifyRequest struct {
	AdminNotes     string `json:"admin_notes"`
	TrackingNumber string `json:"tracking_number"`
}

type fulfillmentRequest struct {
	Status         entity.FulfillmentStatus `json:"status" validate:"required,oneof=processing shipped delivered"`
	TrackingNumber string                   `json:"tracking_number"`
}

type verificationRequest struct {
	FullName         string `json:"full_name" validate:"required"`
	Address          string `json:"address" validate:"required"`
	Phone            string `json:"phone" validate:"required"`
	IDType           string `json:"id_type" validate:"required"`
	IDNumber         string `json:"id_number" validate:"required"`
	IDPhoto          string `json:"id_photo"`
	SelfieWithID     string `json:"selfie_with_id"`
	ProofOfOwnership string `json:"proof_of_ownership"`
}

type reviewRequest struct {
	Status     entity.VerificationStatus `json:"status" validate:"required,oneof=approved rejected"`
	AdminNotes string                    `json:"admin_notes"`
}

// productQuery holds the filter fields that need parsing beyond what
// entity.ProductFilter's schema tags cover.
type productQuery struct {
	MinPrice        string `schema:"min_price"`
	MaxPrice        string `schema:"max_price"`
	IncludeInactive bool   `schema:"include_inactive"`
}

type orderQuery struct {
	BuyerID       string               `schema:"buyer_id"`
	Status        entity.OrderStatus   `schema:"status"`
	PaymentStatus entity.PaymentStatus `schema:"payment_status"`
	Limit         int                  `schema:"limit"`
}

// decodeJSON reads and validates the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			return entity.NewValidationError("", "invalid request body")
		}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return entity.NewValidationError("", err.Error())
	}
	fe := fieldErrs[0]
	return entity.NewValidationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or more", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return "is invalid"
}

// decodeProductFilter reads catalog filters from the query string.
// include_inactive is honoured for admins only.
func decodeProductFilter(r *http.Request, admin bool) (entity.ProductFilter, error) {
	var filter entity.ProductFilter
	var extra productQuery
	query := r.URL.Query()
	if err := queryDecoder.Decode(&filter, query); err != nil {
		return filter, entity.NewValidationError("", "invalid query: "+err.Error())
	}
	if err := queryDecoder.Decode(&extra, query); err != nil {
		return filter, entity.NewValidationError("", "invalid query: "+err.Error())
	}
	for _, bound := range []struct {
		field string
		raw   string
		dst   **decimal.Decimal
	}{
		{"min_price", extra.MinPrice, &filter.MinPrice},
		{"max_price", extra.MaxPrice, &filter.MaxPrice},
	} {
		if bound.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(bound.raw)
		if err != nil {
			return filter, entity.NewValidationError(bound.field, "must be a number")
		}
		*bound.dst = &v
	}
	filter.IncludeInactive = admin && extra.IncludeInactive
	return filter, nil
}

func decodeOrderFilter(r *http.Request) (entity.OrderFilter, error) {
	var q orderQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		return entity.OrderFilter{}, entity.NewValidationError("", "invalid query: "+err.Error())
	}
	return entity.OrderFilter{
		BuyerID:       q.BuyerID,
		Status:        q.Status,
		PaymentStatus: q.PaymentStatus,
		Limit:         q.Limit,
	}, nil
}
