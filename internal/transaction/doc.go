// Package transaction records compensating actions for one repository and undoes them.
//
// Actions are a closed set of typed variants that serialize to the recovery
// file schema. Rollback runs them in reverse registration order and reports
// the outcome instead of returning an error; commit runs only the actions
// tagged as cleanup.
package transaction
