// Package student содержит доменную модель учётной записи Edulight.
//
// Это одно из ядер бизнес-логики системы. Пакет определяет:
//
//   - Сущности (Entities): Student
//   - Value Objects: Role, Status
//   - Интерфейс репозитория: Repository
//
// # Архитектурные принципы
//
// Пакет следует принципам Clean Architecture и DDD:
//
//  1. Минимум внешних зависимостей - стандартная библиотека и bcrypt
//  2. Dependency Inversion - определяет интерфейсы, которые реализуются в infrastructure
//  3. Rich Domain Model - бизнес-логика инкапсулирована в сущностях
//
// # Основные сущности
//
// Student - учётная запись пользователя платформы (студент, преподаватель
// или администратор):
//
//	student, err := NewStudent(NewStudentParams{
//	    ID:          uuid.New().String(),
//	    Email:       "student@edulight.io",
//	    DisplayName: "Имя Студента",
//	    Role:        RoleStudent,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := student.SetPassword("correct horse battery staple"); err != nil {
//	    return err
//	}
//
// Проверка ролей и авторизация запросов выполняются на уровне интерфейса;
// доменная модель хранит роль, но не навязывает политику доступа.
package student
