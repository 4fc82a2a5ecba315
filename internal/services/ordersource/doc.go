// Package ordersource wraps the marketplace order API: fetching open
// orders per product, tagging orders, and updating custom reference fields.
package ordersource
