package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique scrape job ID with the "job_" prefix.
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewProductID generates a unique product ID with the "prd_" prefix.
func NewProductID() string {
	return "prd_" + uuid.New().String()
}

// NewOfferID generates a unique offer ID with the "off_" prefix.
func NewOfferID() string {
	return "off_" + uuid.New().String()
}
