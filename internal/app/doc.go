// Package app composes the PawMate services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/             # Domain models (pure data, a few invariants)
//	│   ├── user/           # Accounts and roles
//	│   ├── pet/            # Pets, care logs, health records, streaks
//	│   ├── sitter/         # Sitter profiles, availability, reviews
//	│   ├── booking/        # Bookings and their status machine
//	│   └── ...             # payment, feed, chat, notification, scan, date
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # UserStore, PetStore, BookingStore, ...
//	│   ├── memory/         # In-memory implementation for tests and dev
//	│   └── postgres/       # PostgreSQL implementation (sqlx + lib/pq)
//	├── services/           # Business rules, one package per module
//	├── httpapi/            # gorilla/mux routes, handlers and audit log
//	├── system/             # Lifecycle manager for background services
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/pawmate (fx)
//	      │
//	      ▼
//	internal/app/httpapi ──► internal/app (composition)
//	                               │
//	                               ├──► services/* ──► storage (interfaces)
//	                               │                       │
//	                               │                       ▼
//	                               │                   domain/*
//	                               │
//	                               └──► internal/platform (blob, database, migrations)
//
// Services never import httpapi or a concrete store. They receive store
// interfaces and a notifier, and return *errors.ServiceError values that the
// HTTP layer renders.
//
// # Adding a Module
//
//  1. Create models in internal/app/domain/<name>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory and storage/postgres, plus a migration
//  4. Write the service in internal/app/services/<name>/
//  5. Wire it in application.go and expose routes in httpapi
package app
