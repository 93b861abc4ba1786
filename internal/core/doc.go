// Package core provides the business logic for the dataset version lifecycle.
//
// This package sits between the pure algorithms (versioning, lineage,
// mapping) and the transports. It can be used by web handlers, the CLI, or
// tests without modification; persistence is reached only through [Store].
//
// # Service
//
// [Service] is the entry point for all operations:
//
//   - [Service.ResolveVersion]: resolve "1.2", "v2.*" or "*" against the
//     public versions of a dataset.
//   - [Service.PlanDeletion] and [Service.DeleteVersions]: remove
//     pre-publication versions, newest first within each lineage.
//   - [Service.ReviewMapping]: summarise the mapping plan of a new version.
//
// # Deletion
//
// Deletions run under a [DeletionLimiter] and in the order computed by
// lineage.NewOrder, so a version is never removed while a kept successor
// still references it. A cyclic version chain aborts the workflow before
// anything is deleted and is logged at error level.
//
// # Error Handling
//
// Lookups fail with *[NotFoundError], rule violations with *[ConflictError]
// and bad input with *[ValidationError]. [MapError] turns any error into a
// [UserMessage] with a support code:
//
//   - VER001-VER002: version lookup
//   - LIN001-LIN002: lineage structure
//   - MAP001-MAP002: mapping plans
//   - DEL001-DEL003: deletion workflow
//   - DB001-DB007: database errors
//
// # Audit Logging
//
// Deletions, rejected deletions and aborted workflows are recorded in the
// audit log. [AuditPurgeScheduler] removes entries past their retention.
package core
