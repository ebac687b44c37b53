package postgres

// Schema is the accounts table expected by AccountStore. Applying it is left to the
// deployment; tests create it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id     BIGSERIAL PRIMARY KEY,
    name   VARCHAR(100) NOT NULL,
    email  VARCHAR(100) NOT NULL UNIQUE,
    role   VARCHAR(50)  NOT NULL DEFAULT 'basicuser',
    status VARCHAR(20)  NOT NULL DEFAULT 'active'
)`
