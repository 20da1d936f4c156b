// Package core contains the domain model for the CampusWatch incident
// reporting service: users and roles, incident reports and their lifecycle,
// chat rooms bound to reports, notifications, and admin role-upgrade
// requests. It has no dependencies on storage or transport so that the same
// business rules apply regardless of backend.
package core
