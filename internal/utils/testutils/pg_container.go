// Copyright 2025 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testContainerPort        = "5432"
	testContainerDatabase    = "testdb"
	testContainerUser        = "testuser"
	testContainerPassword    = "testpassword"
	testContainerImage       = "postgres:17"
	testContainerExposedPort = "5432/tcp"
)

// RunPostgresContainer starts a PostgreSQL container and returns the connection string
func RunPostgresContainer(ctx context.Context) (string, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        testContainerImage,
		ExposedPorts: []string{testContainerExposedPort},
		Env: map[string]string{
			"POSTGRES_USER":     testContainerUser,
			"POSTGRES_PASSWORD": testContainerPassword,
			"POSTGRES_DB":       testContainerDatabase,
		},
		WaitingFor: wait.ForSQL(testContainerExposedPort, "pgx", func(host string, port nat.Port) string {
			return connString(host, port)
		}),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}
	cleanup := func() {
		_ = postgresContainer.Terminate(ctx)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := postgresContainer.MappedPort(ctx, testContainerPort)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return connString(host, port), cleanup, nil
}

func connString(host string, port nat.Port) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testContainerUser, testContainerPassword, host, port.Port(), testContainerDatabase,
	)
}

// PgContainerSuite - suite that runs a single PostgreSQL container for all the tests of the suite
type PgContainerSuite struct {
	suite.Suite
	ConnStr string
	cleanup func()
}

func (s *PgContainerSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping PostgreSQL container tests in short mode")
	}
	connStr, cleanup, err := RunPostgresContainer(context.Background())
	s.Require().NoError(err)
	s.ConnStr = connStr
	s.cleanup = cleanup
}

func (s *PgContainerSuite) TearDownSuite() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// GetConnection - opens a new connection to the container database. The caller closes it
func (s *PgContainerSuite) GetConnection(ctx context.Context) (*pgx.Conn, error) {
	return pgx.Connect(ctx, s.ConnStr)
}

// ExecScript - runs the SQL script using a separate connection
func (s *PgContainerSuite) ExecScript(ctx context.Context, script string) {
	con, err := s.GetConnection(ctx)
	s.Require().NoError(err)
	defer con.Close(ctx) // nolint: errcheck
	_, err = con.Exec(ctx, script)
	s.Require().NoError(err)
}
