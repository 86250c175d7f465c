//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/db"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/store"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

var (
	container *postgres.PostgresContainer
	conn      *sql.DB
)

var _ = BeforeSuite(func(ctx SpecContext) {
	var err error
	container, err = postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("whiteboard_test"),
		postgres.WithUsername("whiteboard"),
		postgres.WithPassword("whiteboard"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := db.NewMigrator(dsn)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	conn, err = db.OpenDSN(ctx, dsn)
	Expect(err).NotTo(HaveOccurred())
}, NodeTimeout(2*time.Minute))

var _ = AfterSuite(func(ctx SpecContext) {
	if conn != nil {
		_ = conn.Close()
	}
	if container != nil {
		Expect(container.Terminate(ctx)).To(Succeed())
	}
})

var _ = Describe("Postgres repositories", func() {
	var (
		users    *store.UserRepository
		contents *store.ContentRepository
		author   types.User
	)

	BeforeEach(func(ctx SpecContext) {
		_, err := conn.ExecContext(ctx, `TRUNCATE users, contents`)
		Expect(err).NotTo(HaveOccurred())

		users = store.NewUserRepository(conn)
		contents = store.NewContentRepository(conn)

		author, err = users.Create(ctx, types.User{
			Username: "ann",
			Email:    "ann@example.com",
			Auth:     types.AuthRecord{Hash: "h", Salt: "s", Iterations: 1},
			Role:     types.RoleUser,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("UserRepository", func() {
		It("finds users by every key", func(ctx SpecContext) {
			byID, err := users.GetByID(ctx, author.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Username).To(Equal("ann"))
			Expect(byID.Auth).To(Equal(author.Auth))

			byName, err := users.GetByUsername(ctx, "ann")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(author.ID))

			byEmail, err := users.GetByEmail(ctx, "ann@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(author.ID))
		})

		It("maps unique violations to conflicts", func(ctx SpecContext) {
			_, err := users.Create(ctx, types.User{
				Username: "other",
				Email:    "ann@example.com",
				Auth:     types.AuthRecord{Hash: "h", Salt: "s", Iterations: 1},
				Role:     types.RoleUser,
			})
			Expect(err).To(MatchError(apperr.ErrConflict))
			Expect(apperr.Message(err)).To(Equal("Email already in use."))
		})

		It("rejects unknown roles", func(ctx SpecContext) {
			author.Role = types.Role("Owner")
			_, err := users.Update(ctx, author)
			Expect(err).To(HaveOccurred())
		})

		It("reports missing users", func(ctx SpecContext) {
			Expect(users.Delete(ctx, author.ID)).To(Succeed())
			Expect(users.Delete(ctx, author.ID)).To(MatchError(store.ErrNotFound))
			_, err := users.GetByID(ctx, author.ID)
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("ContentRepository", func() {
		newText := func(ctx context.Context, body string) types.Content {
			item, err := contents.Create(ctx, types.Content{
				ID:       types.NewID(),
				AuthorID: author.ID,
				EditInfo: types.EditInfo{CreatedAt: time.Now().UTC().Truncate(time.Microsecond)},
				Payload:  types.Text{Body: body, Pos: types.Coords{X: 1, Y: 2}},
			})
			Expect(err).NotTo(HaveOccurred())
			return item
		}

		It("round trips every payload kind", func(ctx SpecContext) {
			text := newText(ctx, "hello")
			path, err := contents.Create(ctx, types.Content{
				ID:       types.NewID(),
				AuthorID: author.ID,
				Payload:  types.Path{Path: "M0 0", Pos: types.Coords{X: 1}, OriginPos: types.Coords{X: 1}, Version: "0.2"},
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := contents.GetByID(ctx, text.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Payload).To(Equal(text.Payload))
			Expect(got.Revision).To(BeEquivalentTo(1))

			got, err = contents.GetByID(ctx, path.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Payload).To(Equal(path.Payload))
		})

		It("updates only at the expected revision", func(ctx SpecContext) {
			item := newText(ctx, "hello")
			now := time.Now().UTC().Truncate(time.Microsecond)
			item.Payload = types.Text{Body: "bye"}
			item.EditInfo.Edited = true
			item.EditInfo.LastEditAt = &now
			item.EditInfo.LastEditBy = author.ID

			saved, err := contents.Update(ctx, item, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Revision).To(BeEquivalentTo(2))

			_, err = contents.Update(ctx, item, 1)
			Expect(err).To(MatchError(store.ErrStaleRevision))

			got, err := contents.GetByID(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Payload).To(Equal(types.Text{Body: "bye"}))
			Expect(got.EditInfo.Edited).To(BeTrue())
			Expect(got.EditInfo.LastEditBy).To(Equal(author.ID))
		})

		It("pages by id and kind", func(ctx SpecContext) {
			for range 5 {
				newText(ctx, "x")
			}
			_, err := contents.Create(ctx, types.Content{
				ID:       types.NewID(),
				AuthorID: author.ID,
				Payload:  types.Image{URL: "u", Scale: types.Coords{X: 1, Y: 1}},
			})
			Expect(err).NotTo(HaveOccurred())

			first, err := contents.ListPage(ctx, types.KindText, "", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(3))

			rest, err := contents.ListPage(ctx, types.KindText, first[2].ID, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(rest).To(HaveLen(2))
			Expect(rest[0].ID > first[2].ID).To(BeTrue())

			all, err := contents.ListPage(ctx, "", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(6))
		})

		It("deletes once", func(ctx SpecContext) {
			item := newText(ctx, "bye")
			Expect(contents.Delete(ctx, item.ID)).To(Succeed())
			Expect(contents.Delete(ctx, item.ID)).To(MatchError(store.ErrNotFound))
		})
	})
})
