package models

import "errors"

type BillType string

const (
	BillTypeSale     BillType = "sale"
	BillTypePurchase BillType = "purchase"
)

func (t BillType) IsValid() bool {
	return t == BillTypeSale || t == BillTypePurchase
}

type EntityType string

const (
	EntityTypeWholesaler     EntityType = "wholesaler"
	EntityTypeDueCustomer    EntityType = "due_customer"
	EntityTypeNormalCustomer EntityType = "normal_customer"
)

func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeWholesaler, EntityTypeDueCustomer, EntityTypeNormalCustomer:
		return true
	}
	return false
}

type CustomerType string

const (
	CustomerTypeDue    CustomerType = "due"
	CustomerTypeNormal CustomerType = "normal"
)

func (t CustomerType) IsValid() bool {
	return t == CustomerTypeDue || t == CustomerTypeNormal
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnline:
		return true
	}
	return false
}

// PaymentEntityType is the counterpart side of a standalone payment record.
type PaymentEntityType string

const (
	PaymentEntityCustomer   PaymentEntityType = "customer"
	PaymentEntityWholesaler PaymentEntityType = "wholesaler"
)

func (t PaymentEntityType) IsValid() bool {
	return t == PaymentEntityCustomer || t == PaymentEntityWholesaler
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type BillStatus string

const (
	BillStatusPaid BillStatus = "paid"
	BillStatusDue  BillStatus = "due"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

var ErrInvalidStatusTransition = errors.New("invalid invoice status transition")

// CanTransitionTo enforces the strict forward progression draft -> sent -> paid,
// with cancelled as an absorbing state reachable from draft or sent only.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case InvoiceStatusDraft:
		return next == InvoiceStatusSent || next == InvoiceStatusCancelled
	case InvoiceStatusSent:
		return next == InvoiceStatusPaid || next == InvoiceStatusCancelled
	case InvoiceStatusPaid, InvoiceStatusCancelled:
		return false
	}
	return false
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleShopkeeper UserRole = "shopkeeper"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleShopkeeper
}

type InvoiceTemplate string

const (
	InvoiceTemplateModern       InvoiceTemplate = "modern"
	InvoiceTemplateClassic      InvoiceTemplate = "classic"
	InvoiceTemplateMinimal      InvoiceTemplate = "minimal"
	InvoiceTemplateProfessional InvoiceTemplate = "professional"
	InvoiceTemplateColorful     InvoiceTemplate = "colorful"
	InvoiceTemplateTax          InvoiceTemplate = "tax"
)

func (t InvoiceTemplate) IsValid() bool {
	switch t {
	case InvoiceTemplateModern, InvoiceTemplateClassic, InvoiceTemplateMinimal,
		InvoiceTemplateProfessional, InvoiceTemplateColorful, InvoiceTemplateTax:
		return true
	}
	return false
}

type ColorScheme string

const (
	ColorSchemeBlue   ColorScheme = "blue"
	ColorSchemeGreen  ColorScheme = "green"
	ColorSchemePurple ColorScheme = "purple"
	ColorSchemeOrange ColorScheme = "orange"
	ColorSchemeRed    ColorScheme = "red"
	ColorSchemeGray   ColorScheme = "gray"
)

func (c ColorScheme) IsValid() bool {
	switch c {
	case ColorSchemeBlue, ColorSchemeGreen, ColorSchemePurple,
		ColorSchemeOrange, ColorSchemeRed, ColorSchemeGray:
		return true
	}
	return false
}

// EntityStatusFilter narrows entity listings.
type EntityStatusFilter string

const (
	EntityStatusActive   EntityStatusFilter = "active"
	EntityStatusInactive EntityStatusFilter = "inactive"
	EntityStatusDeleted  EntityStatusFilter = "deleted"
)

type DuesFilter string

const (
	DuesFilterWithDues DuesFilter = "with_dues"
	DuesFilterClear    DuesFilter = "clear"
)
