// Package postgres implements PostgreSQL persistence layer for Edulight.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students table
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    display_name VARCHAR(100) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'student',
    password_hash TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    last_seen_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Constraints for data integrity
    CONSTRAINT valid_role CHECK (role IN ('student', 'instructor', 'admin')),
    CONSTRAINT valid_status CHECK (status IN ('active', 'suspended', 'deactivated'))
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_students_email ON students(email);
CREATE INDEX IF NOT EXISTS idx_students_role ON students(role);
CREATE INDEX IF NOT EXISTS idx_students_status ON students(status);
CREATE INDEX IF NOT EXISTS idx_students_last_seen_at ON students(last_seen_at);

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_students_updated_at ON students;
CREATE TRIGGER update_students_updated_at
    BEFORE UPDATE ON students
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_students_updated_at ON students;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create course catalog tables
-- Version: 002
-- Purpose: Courses and their lessons. A lesson only counts towards
-- progress once it is published.

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    instructor_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_courses_instructor ON courses(instructor_id);
CREATE INDEX IF NOT EXISTS idx_courses_created_at ON courses(created_at);

DROP TRIGGER IF EXISTS update_courses_updated_at ON courses;
CREATE TRIGGER update_courses_updated_at
    BEFORE UPDATE ON courses
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();

CREATE TABLE IF NOT EXISTS lessons (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    position INTEGER NOT NULL DEFAULT 0,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    video_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_lesson_status CHECK (status IN ('draft', 'published')),
    CONSTRAINT valid_position CHECK (position >= 0),
    CONSTRAINT valid_duration CHECK (duration_minutes >= 0)
);

CREATE INDEX IF NOT EXISTS idx_lessons_course ON lessons(course_id);
CREATE INDEX IF NOT EXISTS idx_lessons_course_position ON lessons(course_id, position);

-- Partial index: counting published lessons is the hottest catalog query,
-- every staleness check on a progress summary runs it.
CREATE INDEX IF NOT EXISTS idx_lessons_course_published ON lessons(course_id) WHERE status = 'published';

DROP TRIGGER IF EXISTS update_lessons_updated_at ON lessons;
CREATE TRIGGER update_lessons_updated_at
    BEFORE UPDATE ON lessons
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration002Down = `
DROP TRIGGER IF EXISTS update_lessons_updated_at ON lessons;
DROP TRIGGER IF EXISTS update_courses_updated_at ON courses;
DROP TABLE IF EXISTS lessons;
DROP TABLE IF EXISTS courses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create enrollments table
-- Version: 003

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id, enrolled_at);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
`

const migration003Down = `
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create progress tracking tables
-- Version: 004
-- Purpose: The completion ledger (source of truth) and derived
-- per-course summaries guarded by an optimistic version column.

-- Ledger of lesson completions, one row per (student, lesson).
-- Rows survive lesson unpublication and course unenrollment.
CREATE TABLE IF NOT EXISTS lesson_completions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMP WITH TIME ZONE,
    time_spent_minutes INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(student_id, lesson_id),
    CONSTRAINT valid_time_spent CHECK (time_spent_minutes >= 0)
);

CREATE INDEX IF NOT EXISTS idx_lesson_completions_student ON lesson_completions(student_id);
CREATE INDEX IF NOT EXISTS idx_lesson_completions_lesson ON lesson_completions(lesson_id);
CREATE INDEX IF NOT EXISTS idx_lesson_completions_completed ON lesson_completions(student_id) WHERE completed;

-- Derived summaries, one row per (student, course). The version column
-- backs the compare-and-swap in the aggregator.
CREATE TABLE IF NOT EXISTS course_progress_summaries (
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    lessons_completed INTEGER NOT NULL DEFAULT 0,
    total_lessons INTEGER NOT NULL DEFAULT 0,
    progress_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_recomputed TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (student_id, course_id),
    CONSTRAINT valid_counts CHECK (lessons_completed >= 0 AND lessons_completed <= total_lessons),
    CONSTRAINT valid_percentage CHECK (progress_percentage >= 0 AND progress_percentage <= 100)
);

CREATE INDEX IF NOT EXISTS idx_progress_summaries_course ON course_progress_summaries(course_id);
CREATE INDEX IF NOT EXISTS idx_progress_summaries_recomputed ON course_progress_summaries(last_recomputed);
`

const migration004Down = `
DROP TABLE IF EXISTS course_progress_summaries;
DROP TABLE IF EXISTS lesson_completions;
`
