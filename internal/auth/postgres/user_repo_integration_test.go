// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

//go:build integration

package postgres_test

import (
	"fmt"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/auth/postgres"
)

const testHash = "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA"

var _ = Describe("UserRepository", func() {
	var repo *postgres.UserRepository

	BeforeEach(func() {
		var err error
		repo, err = postgres.Open(suiteCtx, databaseURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Initialize(suiteCtx)).To(Succeed())
		Expect(repo.Initialize(suiteCtx)).To(Succeed())

		// Specs share the table, so each one uses its own usernames.
		DeferCleanup(func() {
			Expect(repo.Close()).To(Succeed())
		})
	})

	It("stores and reads back a record", func() {
		id, err := repo.Insert(suiteCtx, "alice_pg", "alice@example.com", testHash, auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(BeNumerically(">", 0))

		byName, err := repo.GetByUsername(suiteCtx, "alice_pg")
		Expect(err).NotTo(HaveOccurred())
		Expect(byName.ID).To(Equal(id))
		Expect(byName.PasswordHash).To(Equal(testHash))

		byID, err := repo.GetByID(suiteCtx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID).To(Equal(byName))
	})

	It("reports duplicates", func() {
		_, err := repo.Insert(suiteCtx, "dup_pg", "d@example.com", testHash, auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.Insert(suiteCtx, "dup_pg", "d2@example.com", testHash, auth.RoleUser)
		Expect(err).To(MatchError(auth.ErrDuplicateUsername))
	})

	It("looks usernames up case-sensitively", func() {
		_, err := repo.Insert(suiteCtx, "CaseUser", "c@example.com", testHash, auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.GetByUsername(suiteCtx, "caseuser")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("treats injection payloads as data", func() {
		payload := "attacker'; DROP TABLE users; --"
		_, err := repo.Insert(suiteCtx, payload, "x@example.com", testHash, auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())

		got, err := repo.GetByUsername(suiteCtx, payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal(payload))

		_, err = repo.Count(suiteCtx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("lets exactly one racing insert win", func() {
		const racers = 10
		var (
			wg        sync.WaitGroup
			successes atomic.Int32
		)
		for i := range racers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := repo.Insert(suiteCtx, "race_pg", fmt.Sprintf("r%d@example.com", i), testHash, auth.RoleUser)
				if err == nil {
					successes.Add(1)
					return
				}
				Expect(err).To(MatchError(auth.ErrDuplicateUsername))
			}()
		}
		wg.Wait()
		Expect(successes.Load()).To(Equal(int32(1)))
	})
})
