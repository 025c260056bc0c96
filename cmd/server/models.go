package main

import (
	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/planner"
)

// API Request and Response Models with Swagger annotations

// PlanRequest represents the request body for planning a meal
type PlanRequest struct {
	Calories         *float64 `json:"calories" example:"800" binding:"required"`
	Protein          *float64 `json:"protein" example:"40" binding:"required"`
	Carbs            *float64 `json:"carbs" example:"100" binding:"required"`
	Sodium           *float64 `json:"sodium" example:"1000" binding:"required"`
	ExcludeAllergens []string `json:"exclude_allergens,omitempty" example:"Milk,Peanuts"`
	Filter           string   `json:"filter,omitempty" example:"food.sodium < 500.0"`
} // @name PlanRequest

// PlanResponse wraps a planned meal
type PlanResponse struct {
	Result *planner.Meal `json:"result"`
} // @name PlanResponse

// CatalogResponse represents the response for listing the catalog
type CatalogResponse struct {
	Items []catalog.FoodRecord `json:"items"`
	Count int                  `json:"count" example:"15"`
} // @name CatalogResponse

// ReloadResponse represents the response for a catalog reload
type ReloadResponse struct {
	Status string `json:"status" example:"reloaded"`
	Count  int    `json:"count" example:"15"`
} // @name ReloadResponse

// ErrorBody describes a failed request. Type is a stable error kind.
type ErrorBody struct {
	Type    string `json:"type" example:"Infeasible"`
	ReqUUID string `json:"req_uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
} // @name ErrorBody

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Catalog string `json:"catalog" example:"csv:./data/foods.csv"`
	Error   string `json:"error,omitempty"`
} // @name HealthResponse

// Error kinds produced by the HTTP layer itself.
const (
	kindInvalidRequest = "InvalidRequest"
	kindUnauthorized   = "Unauthorized"
	kindForbidden      = "Forbidden"
)
