package domain

import (
	"errors"
)

var (
	ErrInternal = errors.New("internal error")

	// * Data errors.
	ErrDataNotFound    = errors.New("data not found")
	ErrNoUpdatedData   = errors.New("no data to update")
	ErrConflictingData = errors.New("data conflicts with existing data in unique column")

	// * Communication errors.
	ErrBadRequest = errors.New("error parsing request")
	ErrValidation = errors.New("request validation failed")

	// * Authority errors.
	ErrTokenCreation              = errors.New("error creating token")
	ErrExpiredToken               = errors.New("access token has expired")
	ErrInvalidToken               = errors.New("access token is invalid")
	ErrEmptyAuthorizationHeader   = errors.New("authorization header is not provided")
	ErrInvalidAuthorizationHeader = errors.New("authorization header format is invalid")
	ErrInvalidAuthorizationType   = errors.New("authorization type is not supported")
	ErrUnauthorized               = errors.New("user is unauthorized to access the resource")
	ErrForbidden                  = errors.New("user is forbidden to access the resource")

	// * Business errors.
	ErrEmptyOrder          = errors.New("order has no items")
	ErrBadQuantity         = errors.New("item quantity must be between 1 and 2147483647")
	ErrBadPrice            = errors.New("item price must not be negative")
	ErrPricePrecision      = errors.New("item price has more than two decimal places")
	ErrAmountTooLarge      = errors.New("amount exceeds the supported maximum")
	ErrShippingTransition  = errors.New("shipping status transition is not allowed")
	ErrUnknownStatus       = errors.New("unknown order status")
	ErrOrderAlreadySettled = errors.New("order is already paid or canceled")
	ErrInsufficientStock   = errors.New("insufficient product stock")

	// * Payment errors.
	ErrUpstream               = errors.New("payment gateway request failed")
	ErrMissingPriceRef        = errors.New("product is not registered with the payment gateway")
	ErrSignatureVerification  = errors.New("webhook signature verification failed")
	ErrMissingOrderReference  = errors.New("webhook event carries no order reference")
	ErrIntegrityFault         = errors.New("data integrity fault")
	ErrReviewRecordingFailure = errors.New("failed to record event for manual review")
)
