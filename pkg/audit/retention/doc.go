// Package retention prunes audit records by age and by total count.
//
// A Pruner applies the policy once; a Scheduler runs the pruner on a
// standard five-field cron expression such as "0 3 * * *".
package retention
