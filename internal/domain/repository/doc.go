// Package repository define los contratos del directorio de usuarios.
//
// Las implementaciones concretas viven en internal/store:
//
//	┌──────────────────────────────────────────┐
//	│     services/auth, middlewares           │
//	└──────────────────────────────────────────┘
//	                    │
//	                    ▼
//	┌──────────────────────────────────────────┐
//	│   domain/repository (UserRepository)     │
//	└──────────────────────────────────────────┘
//	           │                    │
//	           ▼                    ▼
//	┌─────────────────┐   ┌─────────────────┐
//	│   store/pg      │   │  store/memory   │
//	└─────────────────┘   └─────────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Los emails se comparan sin distinguir mayúsculas.
//   - La unicidad del email la garantiza la implementación al escribir
//     (ErrConflict), no el chequeo previo del caller.
package repository
